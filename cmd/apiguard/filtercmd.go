package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kindredai/apiguard/pkg/filter"
)

func newFilterCmd() *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter [text]",
		Short: "Run text through the content filter and print the result",
		Long: `Evaluates text against the builtin keyword denylist and
prompt-injection rules, printing the filter result as JSON. Reads stdin when
no argument is given. Useful for auditing rule changes before deploying them.`,
		RunE: runFilter,
	}
	return filterCmd
}

func runFilter(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.Join(lines, "\n")
	}

	result := filter.Default().FilterContent(text)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if result.Blocked {
		// Non-zero exit so shell pipelines can gate on the verdict.
		os.Exit(2)
	}
	return nil
}
