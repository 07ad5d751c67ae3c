package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/connection/blob"
	"github.com/mrsbim/bimsync/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "setup",
	Short:   "Manage the connection profile",
}

var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the connection profile",
	Long: `Create the connection profile used by sync and daemon.

Without --type an interactive form asks for the connection type and its
values. The format follows the file extension (.yaml, .toml or .json).

Examples:
  bimsync profile init
  bimsync profile init --type folder --value root=/srv/bim-remote
  bimsync profile init --type s3 --value endpoint=localhost:9000 --value bucket=bim ...`,
	Run: func(cmd *cobra.Command, args []string) {
		typ, _ := cmd.Flags().GetString("type")
		user, _ := cmd.Flags().GetString("external-user")
		values, _ := cmd.Flags().GetStringToString("value")
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(cfg.ProfilePath); err == nil && !force {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", cfg.ProfilePath)
			os.Exit(1)
		}

		var info connection.Info
		var err error
		if typ == "" {
			if !ui.IsTerminal(os.Stdin) {
				fmt.Fprintf(os.Stderr, "Error: --type is required when stdin is not a terminal\n")
				os.Exit(1)
			}
			info, err = askInfo()
		} else {
			info, err = buildInfo(typ, user, values)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := connection.SaveInfo(cfg.ProfilePath, info); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Wrote %s profile to %s\n", ui.RenderPass("✓"), info.Type, cfg.ProfilePath)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the connection profile with secrets masked",
	Run: func(cmd *cobra.Command, args []string) {
		info, err := connection.LoadInfo(cfg.ProfilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s %s\n", ui.RenderAccent("Profile"), cfg.ProfilePath)
		fmt.Printf("   Type: %s\n", info.Type)
		if info.UserExternalID != "" {
			fmt.Printf("   User: %s\n", info.UserExternalID)
		}
		masked := maskSecrets(info.Values)
		keys := make([]string, 0, len(masked))
		for k := range masked {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("   %s: %s\n", k, masked[k])
		}
		fmt.Println()
	},
}

// requiredValues lists the values each connection type needs.
var requiredValues = map[string][]string{
	blob.FolderType: {"root"},
	blob.BucketType: {"endpoint", "bucket", "access_key", "secret_key"},
}

// buildInfo assembles and checks a profile given on the command line.
func buildInfo(typ, user string, values map[string]string) (connection.Info, error) {
	if !connection.IsRegistered(typ) {
		return connection.Info{}, fmt.Errorf("%w: %q (registered: %s)",
			connection.ErrUnknownType, typ, strings.Join(connection.RegisteredTypes(), ", "))
	}
	info := connection.Info{Type: typ, UserExternalID: user}
	if len(values) > 0 {
		info.Values = make(map[string]string, len(values))
		for k, v := range values {
			info.Values[k] = v
		}
	}
	if err := info.Require(requiredValues[typ]...); err != nil {
		return connection.Info{}, err
	}
	return info, nil
}

func askInfo() (connection.Info, error) {
	var (
		typ, user                string
		root                     string
		endpoint, bucket, region string
		accessKey, secretKey     string
		useSSL                   = true
	)
	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}
	isS3 := func() bool { return typ == blob.BucketType }

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Connection type").
				Options(huh.NewOptions(connection.RegisteredTypes()...)...).
				Value(&typ),
			huh.NewInput().
				Title("Your user id on the remote system").
				Description("Optional. Used as the owner of the synchronization history.").
				Value(&user),
		),
		huh.NewGroup(
			huh.NewInput().Title("Remote folder").Value(&root).Validate(notEmpty),
		).WithHideFunc(func() bool { return typ != blob.FolderType }),
		huh.NewGroup(
			huh.NewInput().Title("Endpoint").Placeholder("s3.amazonaws.com").Value(&endpoint).Validate(notEmpty),
			huh.NewInput().Title("Bucket").Value(&bucket).Validate(notEmpty),
			huh.NewInput().Title("Region").Value(&region),
			huh.NewInput().Title("Access key").Value(&accessKey).Validate(notEmpty),
			huh.NewInput().Title("Secret key").EchoMode(huh.EchoModePassword).Value(&secretKey).Validate(notEmpty),
			huh.NewConfirm().Title("Use TLS?").Value(&useSSL),
		).WithHideFunc(func() bool { return !isS3() }),
	)
	if err := form.Run(); err != nil {
		return connection.Info{}, err
	}

	values := map[string]string{}
	switch typ {
	case blob.FolderType:
		values["root"] = root
	case blob.BucketType:
		values["endpoint"] = endpoint
		values["bucket"] = bucket
		values["access_key"] = accessKey
		values["secret_key"] = secretKey
		values["use_ssl"] = fmt.Sprint(useSSL)
		if region != "" {
			values["region"] = region
		}
	}
	return buildInfo(typ, user, values)
}

// maskSecrets hides every value whose key looks like a credential.
func maskSecrets(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if strings.Contains(k, "secret") || strings.Contains(k, "password") || strings.Contains(k, "token") {
			v = "********"
		}
		out[k] = v
	}
	return out
}

func init() {
	profileInitCmd.Flags().String("type", "", "Connection type (skips the interactive form)")
	profileInitCmd.Flags().String("external-user", "", "Your user id on the remote system")
	profileInitCmd.Flags().StringToString("value", nil, "Connection value as key=value (repeatable)")
	profileInitCmd.Flags().Bool("force", false, "Overwrite an existing profile")

	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
