package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"devpilot/pkg/config"
	"devpilot/pkg/logx"
	"devpilot/pkg/manifest"
	"devpilot/pkg/stack"
	"devpilot/pkg/version"
)

type rootFlags struct {
	projectDir string
	verbose    bool
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "devpilot",
		Short:         "Chat with a coding agent that writes failing tests before code",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		PersistentPreRun: func(*cobra.Command, []string) {
			if flags.debug {
				logx.SetDebug(true)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.projectDir, "project", "p", ".", "project directory")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr instead of .devpilot/devpilot.log")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging for every domain")

	root.AddCommand(
		newAskCmd(flags),
		newIndexCmd(flags),
		newRunsCmd(flags),
		newSecretsCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runChat is the interactive loop. Each line is one dispatch. Ctrl-C cancels the message in
// flight; at the prompt it exits.
func runChat(parent context.Context, flags *rootFlags) error {
	ctx, stop := signalContext(parent)
	a, err := newApp(ctx, flags.projectDir, flags.verbose)
	stop()
	if err != nil {
		return err
	}
	defer a.Close()
	logx.Infof("chat session started in %s", a.root)

	fmt.Println(styles.Box.Render(styles.Title.Render("devpilot") + " " + styles.Muted.Render(version.Version) + "\n" +
		styles.Muted.Render(a.session.Describe())))
	fmt.Println(styles.Muted.Render("Type a message, /mode to toggle agent or TDD mode, or exit to quit."))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print(styles.Prompt.Render("› "))
		if !scanner.Scan() {
			fmt.Println()
			if err := scanner.Err(); err != nil {
				return logx.Errorf("failed to read input: %w", err)
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		}

		msgCtx, cancel := signalContext(parent)
		response := a.dispatch(msgCtx, line)
		cancel()
		fmt.Println(renderResponse(response))
		fmt.Println()
	}
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send a single message and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, flags.projectDir, flags.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println(renderResponse(a.dispatch(ctx, strings.Join(args, " "))))
			return nil
		},
	}
}

func newIndexCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan the workspace manifests and show the detected configuration",
		RunE: func(*cobra.Command, []string) error {
			root, err := filepath.Abs(flags.projectDir)
			if err != nil {
				return err
			}
			ix, err := manifest.NewIndexer().Index(root)
			if err != nil {
				return err
			}
			if len(ix) == 0 {
				fmt.Println(styles.Warning.Render("⚠️ No dependency manifests found."))
				return nil
			}

			fmt.Println(styles.Title.Render("Manifests"))
			for _, key := range ix.Keys() {
				fmt.Printf("  %s (%d dependencies)\n", key, len(ix[key]))
			}

			lookup := ix.AsLookup()
			byKey := func(key string) (map[string]string, bool) {
				deps, ok := lookup[key]
				return deps, ok
			}
			fmt.Println(styles.Title.Render("Detected"))
			stackName, found := stack.Detect(stack.StackRules, byKey)
			for _, row := range []struct {
				label  string
				detect func() (string, bool)
			}{
				{"tech stack", func() (string, bool) { return stackName, found }},
				{"test framework", func() (string, bool) { return stack.DetectTestFramework(stackName, byKey) }},
				{"UI test framework", func() (string, bool) { return stack.DetectUIFramework(stackName, byKey) }},
			} {
				value, ok := row.detect()
				if !ok {
					value = styles.Muted.Render("not detected")
				}
				fmt.Printf("  %-18s %s\n", row.label+":", value)
			}
			return nil
		},
	}
}

func newRunsCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent TDD workflow runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags.projectDir, flags.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(styles.Muted.Render("No workflow runs recorded yet."))
				return nil
			}
			for _, r := range runs {
				status := styles.Success.Render(r.FinalState)
				if r.FinalState != "COMPLETED" {
					status = styles.Warning.Render(r.FinalState)
				}
				fmt.Printf("%s  %s  %s/%s  %q\n", r.StartedAt.Local().Format("2006-01-02 15:04"), status,
					r.TechStack, r.TestFramework, r.Request)
				if r.AbortReason != "" {
					fmt.Printf("    %s\n", styles.Muted.Render(r.AbortReason))
				}
				for _, art := range r.Artifacts {
					fmt.Printf("    %-15s %s\n", art.Kind, art.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func newSecretsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the encrypted secrets file",
	}

	set := &cobra.Command{
		Use:   "set NAME",
		Short: "Store a secret such as ANTHROPIC_API_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editSecrets(flags.projectDir, func(v *config.Vault) error {
				value, err := readSecret(fmt.Sprintf("Value for %s: ", args[0]))
				if err != nil {
					return err
				}
				if value == "" {
					return fmt.Errorf("empty value for %s", args[0])
				}
				v.Set(args[0], value)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editSecrets(flags.projectDir, func(v *config.Vault) error {
				v.Delete(args[0])
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		RunE: func(*cobra.Command, []string) error {
			root, err := filepath.Abs(flags.projectDir)
			if err != nil {
				return err
			}
			vault, err := openVault(root, isInteractive())
			if err != nil {
				return err
			}
			names := vault.Names()
			if len(names) == 0 {
				fmt.Println(styles.Muted.Render("No secrets stored."))
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	cmd.AddCommand(set, del, list)
	return cmd
}

// editSecrets unlocks or creates the secrets file, applies fn and saves it again.
func editSecrets(projectDir string, fn func(*config.Vault) error) error {
	if !isInteractive() && os.Getenv(config.EnvPassword) == "" {
		return fmt.Errorf("editing secrets needs a terminal or %s", config.EnvPassword)
	}
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}

	vault := config.NewVault(root)
	password := os.Getenv(config.EnvPassword)
	switch {
	case password != "":
	case config.SecretsFileExists(root):
		if password, err = readSecret("🔐 Secrets password: "); err != nil {
			return err
		}
	default:
		if password, err = promptNewPassword(); err != nil {
			return err
		}
	}
	if config.SecretsFileExists(root) {
		if err := vault.Unlock(password); err != nil {
			return fmt.Errorf("failed to unlock secrets: %w", err)
		}
	}

	if err := fn(vault); err != nil {
		return err
	}
	if err := vault.Save(password); err != nil {
		return err
	}
	fmt.Println(styles.Success.Render("✅ Secrets saved to " + config.SecretsPath(root)))
	return nil
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the project configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .devpilot/config.json",
		RunE: func(*cobra.Command, []string) error {
			root, err := filepath.Abs(flags.projectDir)
			if err != nil {
				return err
			}
			path := config.Path(root)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), root); err != nil {
				return err
			}
			fmt.Println(styles.Success.Render("✅ Wrote " + path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(*cobra.Command, []string) error {
			root, err := filepath.Abs(flags.projectDir)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}
