package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/ingest"
	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/utils"
)

var (
	pbFlags  inputFlags
	pbOutDir string
	pbQuiet  bool
)

var profileBatchCmd = &cobra.Command{
	Use:   "profile-batch <files...>",
	Short: "Profile many CSV/TSV/XLSX files and write one report per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		inOpt, err := pbFlags.ingestOptions()
		if err != nil {
			return err
		}
		opt, err := pbFlags.profileOptions(cmd)
		if err != nil {
			return err
		}
		if err := checkFormat(pbFlags.format); err != nil {
			return err
		}
		if err := os.MkdirAll(pbOutDir, 0o755); err != nil {
			return fmt.Errorf("create out dir: %w", err)
		}

		p := profile.New(opt)
		out := cmd.OutOrStdout()

		var bar *uiprogress.Bar
		if !pbQuiet {
			uiprogress.Start()
			bar = uiprogress.AddBar(len(files)).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return fmt.Sprintf("Profiling %d/%d ", b.Current(), len(files))
			})
		}

		var written []string
		failed := 0
		for _, path := range files {
			if err := profileOne(p, path, inOpt, &written); err != nil {
				failed++
				log.WithField("file", path).WithError(err).Error("profile failed")
			}
			if bar != nil {
				bar.Incr()
			}
		}
		if bar != nil {
			uiprogress.Stop()
		}

		for _, w := range written {
			fmt.Fprintf(out, "✓ %s\n", w)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

func profileOne(p *profile.Profiler, path string, inOpt ingest.Options, written *[]string) error {
	rep, err := profileFile(p, path, inOpt)
	if err != nil {
		return err
	}
	data, err := renderReport(rep, pbFlags.format)
	if err != nil {
		return err
	}
	dest := utils.UniquePath(pbOutDir, utils.BaseName(path), reportExt(pbFlags.format))
	if err := utils.SafeWriteFile(dest, data); err != nil {
		return err
	}
	*written = append(*written, filepath.Clean(dest))
	return nil
}

func init() {
	rootCmd.AddCommand(profileBatchCmd)
	pbFlags.register(profileBatchCmd)
	profileBatchCmd.Flags().StringVar(&pbOutDir, "out-dir", ".", "directory for the <name>.report.<ext> files")
	profileBatchCmd.Flags().BoolVarP(&pbQuiet, "quiet", "q", false, "no progress bar")
}
