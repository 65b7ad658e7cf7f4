package cli

import (
	"fmt"
	"strings"

	"github.com/egtann/schema"
	"github.com/rs/zerolog"
)

// zerologAdapter satisfies schema.RunLogger.
type zerologAdapter struct {
	log zerolog.Logger
}

func (z zerologAdapter) Printf(s string, vs ...interface{}) {
	z.log.Info().Msg(strings.TrimSuffix(fmt.Sprintf(s, vs...), "\n"))
}

func (z zerologAdapter) Println(vs ...interface{}) {
	z.log.Info().Msg(strings.TrimSuffix(fmt.Sprintln(vs...), "\n"))
}

func (z zerologAdapter) WithRunID(id string) schema.Logger {
	return zerologAdapter{z.log.With().Str("run_id", id).Logger()}
}
