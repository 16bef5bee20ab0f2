package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelgen/internal/domain/composition"
	"github.com/forPelevin/reelgen/internal/domain/scenes"
	"github.com/forPelevin/reelgen/internal/logging"
	"github.com/forPelevin/reelgen/internal/scenefile"
	"github.com/forPelevin/reelgen/internal/usecase"
)

func newScenesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "Inspect and review the scenes of a run",
	}
	cmd.AddCommand(newScenesShowCommand())
	cmd.AddCommand(newScenesExportCommand())
	cmd.AddCommand(newScenesImportCommand())
	return cmd
}

// scenesPath resolves a run directory or a scene file argument.
func scenesPath(arg string) (path, runDir string, err error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return filepath.Join(arg, filepath.FromSlash(usecase.ScenesFile)), arg, nil
	}
	return arg, "", nil
}

func newScenesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <runDir|scenes-file>",
		Short: "Print scenes with their timings and image prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, runDir, err := scenesPath(args[0])
			if err != nil {
				return err
			}
			ss, err := scenefile.Load(path)
			if err != nil {
				return err
			}

			var images composition.ImageSource
			if runDir != "" {
				images = composition.ImageDir(filepath.Join(runDir, usecase.ImagesDir))
			}
			rows := make([][]string, 0, len(ss))
			for i, sc := range ss {
				prompt := "-"
				if sc.ImagePrompt != nil {
					prompt = *sc.ImagePrompt
				}
				image := "-"
				if images != nil {
					if _, ok := images.ImagePath(i); ok {
						image = "yes"
					}
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					fmt.Sprintf("%.2f", sc.StartTime),
					fmt.Sprintf("%.2f", sc.EndTime),
					strconv.Itoa(scenes.WordCount(sc.ChunkText)),
					image,
					prompt,
				})
			}

			out := cmd.OutOrStdout()
			headers := []string{"#", "Start", "End", "Words", "Image", "Prompt"}
			if !logging.IsTerminal(out) {
				fmt.Fprintln(out, strings.Join(headers, "\t"))
				for _, r := range rows {
					fmt.Fprintln(out, strings.Join(r, "\t"))
				}
				return nil
			}
			aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, map[int]int{5: 72}))
			fmt.Fprintf(out, "%d scenes, %d with prompts\n", len(ss), scenes.Prompted(ss))
			return nil
		},
	}
}

func newScenesExportCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "export <runDir>",
		Short: "Write the scenes of a run to an editable YAML review file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, runDir, err := scenesPath(args[0])
			if err != nil {
				return err
			}
			if runDir == "" {
				return errors.New("export expects a run directory")
			}
			ss, err := scenefile.Load(path)
			if err != nil {
				return err
			}
			if target == "" {
				target = filepath.Join(runDir, usecase.ReviewFile)
			}
			if err := scenefile.Save(target, ss); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d scenes to %s\n", len(ss), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "output", "o", "", "Destination file (.yaml or .json)")
	return cmd
}

func newScenesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <runDir> <edited-file>",
		Short: "Apply edited image prompts to the scenes of a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, runDir, err := scenesPath(args[0])
			if err != nil {
				return err
			}
			if runDir == "" {
				return errors.New("import expects a run directory")
			}
			base, err := scenefile.Load(path)
			if err != nil {
				return err
			}
			edited, err := scenefile.Load(args[1])
			if err != nil {
				return err
			}
			if len(edited) != len(base) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: edited file has %d scenes, run has %d; extra or missing entries are ignored\n", len(edited), len(base))
			}
			merged, changed := scenefile.MergePrompts(base, edited)
			if err := scenefile.Save(path, merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d prompts in %s\n", changed, path)
			return nil
		},
	}
}
