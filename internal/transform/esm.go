package transform

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Desugar converts an ES module to CommonJS. Imports become require calls
// with the original specifiers and exports are defined on an __esModule
// marked exports object.
func Desugar(path, code string) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Sourcefile: path,
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Target:     api.ESNext,
		Platform:   api.PlatformNeutral,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", syntaxError(result.Errors[0])
	}
	return string(result.Code), nil
}

func syntaxError(msg api.Message) error {
	loc := ""
	if msg.Location != nil {
		loc = fmt.Sprintf(" at line %d, column %d", msg.Location.Line, msg.Location.Column)
	}
	return fmt.Errorf("syntax error%s: %s", loc, msg.Text)
}
