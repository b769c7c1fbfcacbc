// Terminal chat client for manual testing against a running gateway. It mints
// its own credential from the shared secret, connects, prints every frame the
// server pushes, and forwards stdin lines as send-message events.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"chat-core/auth"
	"chat-core/internal"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.UserID == "" || config.AuthTokenDuration == 0 {
		log.Fatal("USER_ID and AUTH_TOKEN_DURATION are required for the client")
	}
	serverURL := config.ServerURL
	if serverURL == "" {
		serverURL = fmt.Sprintf("ws://%s:%d/ws", config.Host, config.Port)
	}

	// 2. Mint a credential and connect
	token, err := auth.GenerateToken(config.JWTSecret, config.UserID, config.AuthTokenDuration)
	if err != nil {
		log.Fatalf("Token error: %v", err)
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer conn.Close()

	header := fmt.Sprintf("  ====== connected as %s ======", config.UserID)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	// 3. Print every server frame
	go func() {
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				fmt.Println(color.FgRed.Render("connection closed: " + err.Error()))
				os.Exit(0)
			}
			render(f)
		}
	}()

	// 4. Forward stdin
	// Commands: /start <userId>, /history <convId>, /read <convId>, /list,
	// plus "<convId> <text>" to send a message.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f, ok := parseLine(line)
		if !ok {
			fmt.Println(color.FgYellow.Render("usage: /start <userId> | /history <convId> | /read <convId> | /list | <convId> <text>"))
			continue
		}
		if err := conn.WriteJSON(f); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
	}
}

func parseLine(line string) (frame, bool) {
	fields := strings.Fields(line)
	payload := func(v any) json.RawMessage {
		data, _ := json.Marshal(v)
		return data
	}

	switch fields[0] {
	case "/start":
		if len(fields) != 2 {
			return frame{}, false
		}
		return frame{Event: "start-conversation", Data: payload(map[string]string{"toUserId": fields[1]})}, true
	case "/history":
		if len(fields) != 2 {
			return frame{}, false
		}
		return frame{Event: "get-messages", Data: payload(map[string]string{"conversationId": fields[1]})}, true
	case "/read":
		if len(fields) != 2 {
			return frame{}, false
		}
		return frame{Event: "mark-as-read", Data: payload(map[string]string{"conversationId": fields[1]})}, true
	case "/list":
		return frame{Event: "get-conversations"}, true
	default:
		if len(fields) < 2 {
			return frame{}, false
		}
		return frame{Event: "send-message", Data: payload(map[string]string{
			"conversationId": fields[0],
			"content":        strings.Join(fields[1:], " "),
		})}, true
	}
}

func render(f frame) {
	pretty := string(f.Data)
	var buf map[string]any
	if err := json.Unmarshal(f.Data, &buf); err == nil {
		if data, err := json.MarshalIndent(buf, "", "  "); err == nil {
			pretty = string(data)
		}
	}

	label := color.FgCyan.Render(f.Event)
	if f.Event == "socket-error" {
		label = color.FgRed.Render(f.Event)
	}
	fmt.Printf("%s %s\n", label, pretty)
}
