package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <timeline>",
	Short: "Delete a timeline and all its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !deleteForce {
		fmt.Fprintf(out, "Delete timeline %q (%s) with %d step(s)? [y/N] ", t.Name(), t.ID(), t.Len())
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, err := service.Delete(t.ID())
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("timeline %s was not deleted", t.ID())
	}
	fmt.Fprintf(out, "Timeline %q deleted.\n", t.Name())
	return nil
}
