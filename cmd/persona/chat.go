package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"persona/internal/store"
)

var chatCharacter string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive terminal chat",
	Long: `Runs a chat session in the terminal. Each turn goes through the full
agent flow, so the character can use registered capabilities and
synthesize new ones mid-conversation. Type 'exit' or press Ctrl-D to
leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := shutdownContext()
		defer cancel()

		rt, err := buildRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		var character *store.Character
		if chatCharacter != "" {
			character = rt.characters[strings.ToLower(chatCharacter)]
			if character == nil {
				return fmt.Errorf("unknown character %q", chatCharacter)
			}
		}

		conv, err := rt.conversations.Create(chatCharacter)
		if err != nil {
			return err
		}
		a := rt.agentFor(character)

		if character != nil && character.Greeting != "" {
			fmt.Printf("%s: %s\n", character.Name, character.Greeting)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("you> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}
			if ctx.Err() != nil {
				break
			}

			_, reply := a.Respond(ctx, line, conv.Messages)
			fmt.Println(reply)

			if conv, err = rt.conversations.AppendMessage(conv.ID, "user", line); err != nil {
				return err
			}
			if conv, err = rt.conversations.AppendMessage(conv.ID, "assistant", reply); err != nil {
				return err
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatCharacter, "character", "c", "", "character card to chat with")
}
