package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"catchpost/internal/forward"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run diagnostic checks on your Catchpost setup",
		Long: `Verifies that Catchpost's configuration, Slack credentials, and
listening port are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("Catchpost Check v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config source
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s, using environment only", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg, err := loadConfig()
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\nResults: %d passed, %d warnings, %d failed\n", passed, warned, failed)
				return fmt.Errorf("configuration invalid")
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Slack auth
			forwarder := forward.NewSlack(forward.SlackConfig{
				BotToken:       cfg.Slack.BotToken,
				DefaultChannel: cfg.Slack.ChannelID,
				APIURL:         cfg.Slack.APIURL,
				Logger:         logger,
			})
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if user, err := forwarder.CheckAuth(ctx); err != nil {
				printFail("Slack auth", err.Error())
				failed++
			} else {
				printPass("Slack auth", fmt.Sprintf("authenticated as %s", user))
				passed++
			}

			// 4. Listening port
			if err := checkPort(cfg.Port); err != nil {
				printWarn("Port", fmt.Sprintf("port %d may be in use: %v", cfg.Port, err))
				warned++
			} else {
				printPass("Port", fmt.Sprintf(":%d available", cfg.Port))
				passed++
			}

			// 5. Telegram mirror
			if cfg.Telegram.Enabled {
				if _, err := strconv.ParseInt(strings.TrimSpace(cfg.Telegram.ChatID), 10, 64); err != nil {
					printFail("Telegram mirror", fmt.Sprintf("invalid chat ID %q", cfg.Telegram.ChatID))
					failed++
				} else {
					printPass("Telegram mirror", "configured")
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running Catchpost.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nCatchpost should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! Catchpost is ready to run.\n")
			}
			return nil
		},
	}
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
