package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sniper/internal/engine"
)

// Output writes command results either as text or as JSON.
type Output struct {
	writer   io.Writer
	jsonMode bool
}

func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
	}
}

func (o *Output) IsJSON() bool {
	return o.jsonMode
}

func (o *Output) JSON(data any) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.writer, args...)
}

type accountLine struct {
	Account string `json:"account"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AccountResults prints one line per account and fails when any account did.
func (o *Output) AccountResults(results []engine.AccountResult) error {
	lines := make([]accountLine, 0, len(results))
	for _, res := range results {
		line := accountLine{Account: res.AccountID, Detail: res.Detail}
		if res.Err != nil {
			line.Error = res.Err.Error()
		}
		lines = append(lines, line)
	}

	if o.IsJSON() {
		if err := o.JSON(lines); err != nil {
			return err
		}
	} else {
		for _, line := range lines {
			if line.Error != "" {
				o.Printf("%-16s FAILED %s\n", line.Account, line.Error)
				continue
			}
			o.Printf("%-16s %s\n", line.Account, line.Detail)
		}
	}

	if failed := engine.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(results))
	}
	return nil
}
