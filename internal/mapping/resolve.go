package mapping

import (
	"go.uber.org/zap"
)

// Options selects the techniques Resolve layers together. Later layers are more
// precise and win: auto-detect, then an AI suggestion, then a template, then the
// operator's manual choices.
type Options struct {
	AutoDetect bool
	Suggested  FieldMapping
	Template   *Template
	Manual     FieldMapping
}

// Resolution is the mapping produced for one set of headers.
type Resolution struct {
	Mapping  FieldMapping
	Defaults Defaults
	// Sources records which technique supplied each field.
	Sources map[Field]string
}

const (
	SourceAuto     = "auto"
	SourceAI       = "ai"
	SourceTemplate = "template"
	SourceManual   = "manual"
)

// Resolve builds a FieldMapping for headers. Columns that are not in headers are
// dropped from every layer and logged.
func Resolve(headers []string, opts Options, logger *zap.Logger) Resolution {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := Resolution{
		Mapping: FieldMapping{},
		Sources: map[Field]string{},
	}

	apply := func(source string, layer FieldMapping) {
		if layer.IsEmpty() {
			return
		}
		kept, dropped := layer.Restrict(headers)
		if len(dropped) > 0 {
			names := make([]string, 0, len(dropped))
			for _, f := range dropped {
				names = append(names, string(f))
			}
			logger.Warn("mapping refers to columns missing from input",
				zap.String("source", source),
				zap.Strings("fields", names),
			)
		}
		for f, column := range kept {
			res.Mapping[f] = column
			res.Sources[f] = source
		}
	}

	if opts.AutoDetect {
		apply(SourceAuto, Detect(headers))
	}
	apply(SourceAI, opts.Suggested)
	if opts.Template != nil {
		apply(SourceTemplate, opts.Template.Mapping)
		res.Defaults = opts.Template.Defaults
	}
	apply(SourceManual, opts.Manual)

	logger.Debug("mapping resolved", zap.Int("fields", len(res.Mapping)), zap.Int("headers", len(headers)))

	return res
}
