package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prodkit/prodkit/internal/scaffold"
	"github.com/prodkit/prodkit/internal/shell/prompt"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate production files for the project",
	Long: `init writes the production configuration a deployment needs:
an env file with a fresh secret key, a compose file, a production
Dockerfile, an entrypoint script and a requirements file. Files that
already exist are left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg)

	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("cannot resolve project root: %w", err)
	}

	prompter := prompt.NewCLIPrompter(os.Stdin, os.Stdout)
	domain, err := prompter.Text("What's the domain name of your application?", "*")
	if errors.Is(err, prompt.ErrCancelled) {
		fmt.Println(yellow("init cancelled"))
		return nil
	}
	if err != nil {
		return err
	}

	secretKey, err := scaffold.NewSecretKey()
	if err != nil {
		return err
	}

	written, err := scaffold.Generate(root, scaffold.Params{
		ProjectName: filepath.Base(root),
		Domain:      domain,
		SecretKey:   secretKey,
	}, logger)
	if err != nil {
		return err
	}

	if len(written) == 0 {
		fmt.Println(yellow("nothing to do, all production files already exist"))
		return nil
	}
	fmt.Printf("%s generated %d production files\n", green("✓"), len(written))
	fmt.Printf("review them, then run %s\n", bold("prodkit deploy"))
	return nil
}
