package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelgen/internal/domain/subtitles"
	"github.com/forPelevin/reelgen/internal/types"
)

func newSRTCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "srt <transcript.json>",
		Short: "Convert a transcript JSON file to SRT subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var tr types.Transcript
			if err := json.Unmarshal(b, &tr); err != nil {
				return fmt.Errorf("parse transcript: %w", err)
			}
			cues, err := subtitles.BuildCues(&tr)
			if err != nil {
				return err
			}
			srt := subtitles.RenderSRT(cues)
			if output == "" || output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), srt)
				return err
			}
			if err := os.WriteFile(output, []byte(srt), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d cues to %s\n", len(cues), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
