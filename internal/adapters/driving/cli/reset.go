package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the persisted index",
	Long: `Deletes the vector file, the sidecar, and the manifest together.
A missing index is not an error. This is the recovery path for an
incomplete or inconsistent index.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	if !resetYes {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); !ok || !isTerminal(f) {
			return errors.New("refusing to reset without --yes")
		}
		fmt.Fprint(cmd.OutOrStdout(), "Delete the index and all its vectors? [y/N]: ")
		answer := readLine(bufio.NewReader(in))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := p.Index.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Index reset.")
	return nil
}
