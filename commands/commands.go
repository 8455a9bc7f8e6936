package commands

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Name is the remote admin command the plugin registers.
const Name = "colorfulez"

// Target is what the commands act on.
type Target interface {
	ReloadAssets() (bool, []string)
	ChangeColor(arg string) (bool, []string)
}

// Result is the outcome of one command invocation.
type Result struct {
	Success bool     `json:"success"`
	Lines   []string `json:"lines"`
}

// Usage lists the available subcommands.
func Usage() []string {
	return []string{
		Name + " reload (Alias reloadassets) - reloads all stripes from the asset files",
		Name + " changecolor (Alias cc) <hex or name> - changes the color of all stripes",
	}
}

// Execute runs one command line against target. A leading "colorfulez" token is optional.
func Execute(target Target, args []string) Result {
	if len(args) > 0 && strings.EqualFold(args[0], Name) {
		args = args[1:]
	}

	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}

	res := Result{Lines: Usage()}
	root := newRootCmd(target, &res)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return Result{Lines: Usage()}
	}
	return res
}

// newRootCmd builds a fresh command tree. Trees are not reused since cobra
// commands keep per invocation state.
func newRootCmd(target Target, res *Result) *cobra.Command {
	usage := func(cmd *cobra.Command, args []string) {
		*res = Result{Lines: Usage()}
	}

	root := &cobra.Command{
		Use:                Name,
		Short:              "Manage the entrance zone stripes",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		Run:                usage,
	}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetHelpFunc(usage)

	root.AddCommand(&cobra.Command{
		Use:                "reload",
		Aliases:            []string{"reloadassets"},
		Short:              "Reload all stripes from the asset files",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			ok, lines := target.ReloadAssets()
			*res = Result{Success: ok, Lines: lines}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:                "changecolor <hex or name>",
		Aliases:            []string{"cc"},
		Short:              "Change the color of all stripes",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			color := ""
			if len(args) > 0 {
				color = args[0]
			}
			ok, lines := target.ChangeColor(color)
			*res = Result{Success: ok, Lines: lines}
		},
	})

	return root
}
