package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wispbot/wisp/internal/config"
	"github.com/wispbot/wisp/internal/engine"
	"github.com/wispbot/wisp/internal/gateway"
	"github.com/wispbot/wisp/internal/intent"
)

var rootCmd = &cobra.Command{
	Use:   "wisp",
	Short: "wisp - a tiny rule-based chat assistant",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in single message or REPL mode",
	RunE:  runChat,
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (channels + cron)",
	RunE:  runGateway,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and default intents",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wisp status",
	RunE:  runStatus,
}

var messageFlag string

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	rootCmd.AddCommand(chatCmd, gatewayCmd, onboardCmd, statusCmd, cronCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine loads the intents file named by the config and compiles the
// reply engine. Any problem here is fatal: there is no degraded engine.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	catalog, defaultResp, err := intent.LoadFile(cfg.Bot.IntentsPath)
	if err != nil {
		return nil, fmt.Errorf("load intents: %w", err)
	}
	eng, err := engine.New(catalog, defaultResp)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

// ChatOptions for running chat with custom dependencies
type ChatOptions struct {
	Engine *engine.Engine
	Stdin  io.Reader
	Stdout io.Writer
}

// runChat is the command handler that uses default options
func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(ChatOptions{})
}

// runChatWithOptions runs the chat loop with injectable dependencies for testing
func runChatWithOptions(opts ChatOptions) error {
	eng := opts.Engine
	if eng == nil {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		eng, err = buildEngine(cfg)
		if err != nil {
			return err
		}
	}

	// Use injected IO or defaults
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	// Single message mode
	if messageFlag != "" {
		fmt.Fprintln(stdout, eng.Respond(messageFlag))
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "wisp ready. Type 'exit' to quit.")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout, "\nBye!")
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lowered := strings.ToLower(input); lowered == "exit" || lowered == "quit" {
			fmt.Fprintln(stdout, "Bye!")
			break
		}
		fmt.Fprintf(stdout, "Bot: %s\n", eng.Respond(input))
	}
	return nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(cmd.Context())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	writeIfNotExists(cfg.Bot.IntentsPath, defaultIntentsYML)

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to add intents\n", cfg.Bot.IntentsPath)
	fmt.Println("  2. Run 'wisp chat -m \"hello\"' to test")
	fmt.Println("  3. Run 'wisp gateway' to serve the web chat")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Intents: %s\n", cfg.Bot.IntentsPath)

	catalog, _, err := intent.LoadFile(cfg.Bot.IntentsPath)
	if err != nil {
		fmt.Printf("Intents file: error (%v)\n", err)
		fmt.Println("Run 'wisp onboard' to create a starter intents file.")
	} else {
		fmt.Printf("Intents loaded: %d (%s)\n", catalog.Len(), strings.Join(catalog.Names(), ", "))
	}

	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Web: enabled=%v\n", cfg.Channels.Web.Enabled)
	fmt.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)

	return nil
}

func writeIfNotExists(path, content string) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	if err := os.WriteFile(path, []byte(content), 0644); err == nil {
		fmt.Printf("  Created: %s\n", path)
	}
}

const defaultIntentsYML = `default_response: "I'm not sure I understand. Could you rephrase that?"

intents:
  - name: greeting
    patterns:
      - '\b(hello|hi|hey|howdy)\b'
    responses:
      - "Hello! How can I help you today?"
      - "Hi there!"
      - "Hey! What can I do for you?"

  - name: goodbye
    patterns:
      - '\b(bye|goodbye|see you|farewell)\b'
    responses:
      - "Goodbye!"
      - "See you later!"
      - "Bye! Take care."

  - name: name_intro
    patterns:
      - '\b(?:i am|i''m|im)\s+[a-z]+\b'
      - '\bmy\s+name\s+is\b'
    responses:
      - "Nice to meet you, {name}!"
      - "Great to meet you, {name}!"

  - name: weather
    patterns:
      - '\bweather\b'
      - '\b(raining|sunny|forecast)\b'
    responses:
      - "I can't check live weather yet, but I hope it's nice out!"

  - name: time
    patterns:
      - '\btime\b'
    responses:
      - "It's {time} right now."
      - "The time is {time}."

  - name: thanks
    patterns:
      - '\b(thanks|thank you|thx)\b'
    responses:
      - "You're welcome!"
      - "Anytime!"

  - name: fallback
    patterns: []
    responses:
      - "I'm not sure I understand. Could you rephrase that?"
      - "Hmm, I didn't get that. Try asking another way?"
`
