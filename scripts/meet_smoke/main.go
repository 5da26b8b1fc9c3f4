// meet_smoke is an end-to-end smoke client: it obtains a guest token,
// creates or joins a meeting, and negotiates peer links with everyone
// else in the room while relaying chat typed on stdin.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/meetsig/meetsig-server/internal/peer"
	"github.com/meetsig/meetsig-server/internal/proto"
	"github.com/meetsig/meetsig-server/internal/sigclient"
)

var _ peer.Signaler = (*sigclient.Client)(nil)

func main() {
	if err := run(); err != nil {
		log.Printf("meet_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	meetingID := flag.String("meeting", "", "meeting code to join (empty creates a new meeting)")
	name := flag.String("name", "smoke-user", "display name")
	stun := flag.String("stun", "stun:stun.l.google.com:19302", "STUN server")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, err := guestToken(ctx, *server)
	if err != nil {
		return fmt.Errorf("guest token: %w", err)
	}

	code := *meetingID
	if code == "" {
		code, err = createMeeting(ctx, *server, token)
		if err != nil {
			return fmt.Errorf("create meeting: %w", err)
		}
		fmt.Printf("Created meeting %s\n", code)
	}

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	client, err := sigclient.Dial(ctx, wsURL, token, nil)
	if err != nil {
		return fmt.Errorf("dial signaling: %w", err)
	}
	defer client.Close()

	factory := peer.NewPionFactory(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{*stun}}},
	}, nil)
	coord := peer.NewCoordinator(ctx, peer.Config{
		Signaler: client,
		Factory:  factory,
		OnPeerLost: func(remoteID string) {
			fmt.Printf("connection to participant %s lost\n", remoteID)
		},
	})
	defer coord.Close()

	if err := client.Join(ctx, code, *name); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	fmt.Printf("Joining %s as %s. Type messages and press Enter. Ctrl+C to exit.\n", code, *name)

	roster := peer.NewRoster()
	dedup := peer.NewChatDedup(time.Second)

	go func() {
		defer cancel()
		readLoop(ctx, client, coord, roster, dedup)
	}()

	chatLoop(ctx, client, *name)

	_ = client.Leave(context.Background(), code)
	return nil
}

func readLoop(ctx context.Context, client *sigclient.Client, coord *peer.Coordinator, roster *peer.Roster, dedup *peer.ChatDedup) {
	for {
		ev, err := client.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch ev.Type {
		case proto.EventJoined:
			coord.SetSelfID(ev.Joined.SelfID)
			for _, p := range ev.Joined.Participants {
				roster.Upsert(peer.RosterEntry{
					ConnID:      p.ConnID,
					DisplayName: p.DisplayName,
					JoinedAt:    time.UnixMilli(p.JoinedAt),
				})
				if err := coord.HandlePeerJoined(ctx, p.ConnID); err != nil {
					log.Printf("negotiate with %s: %v", p.ConnID, err)
				}
			}
			fmt.Printf("joined, %d other participant(s)\n", len(ev.Joined.Participants))

		case proto.EventUserJoined:
			roster.Upsert(peer.RosterEntry{
				ConnID:      ev.UserJoined.ConnID,
				DisplayName: ev.UserJoined.DisplayName,
				JoinedAt:    time.Now(),
			})
			fmt.Printf("%s joined\n", ev.UserJoined.DisplayName)
			if err := coord.HandlePeerJoined(ctx, ev.UserJoined.ConnID); err != nil {
				log.Printf("negotiate with %s: %v", ev.UserJoined.ConnID, err)
			}

		case proto.EventUserLeft:
			if entry, ok := roster.Get(ev.UserLeft.ConnID); ok {
				fmt.Printf("%s left\n", entry.DisplayName)
			}
			roster.Remove(ev.UserLeft.ConnID)
			coord.HandlePeerLeft(ev.UserLeft.ConnID)

		case proto.EventOffer:
			if err := coord.HandleOffer(ctx, ev.Signal.From, ev.Signal.Payload); err != nil {
				log.Printf("handle offer: %v", err)
			}
		case proto.EventAnswer:
			if err := coord.HandleAnswer(ctx, ev.Signal.From, ev.Signal.Payload); err != nil {
				log.Printf("handle answer: %v", err)
			}
		case proto.EventICECandidate:
			if err := coord.HandleCandidate(ev.Signal.From, ev.Signal.Payload); err != nil {
				log.Printf("handle candidate: %v", err)
			}
		case proto.EventRequestReconnect:
			if err := coord.HandleReconnectRequest(ctx, ev.Signal.From); err != nil {
				log.Printf("handle reconnect: %v", err)
			}

		case proto.EventChatMessage:
			if dedup.Observe(*ev.Chat) {
				prefix := ""
				if ev.Chat.IsPrivate {
					prefix = "(private) "
				}
				fmt.Printf("%s%s: %s\n", prefix, ev.Chat.Sender, ev.Chat.Text)
			}

		case proto.EventToggleMute, proto.EventToggleVideo, proto.EventToggleScreenShare,
			proto.EventOwnerToggleMute, proto.EventOwnerToggleVideo:
			fmt.Printf("%s: %s=%v\n", ev.Toggle.ConnID, ev.Type, ev.Toggle.State)

		case proto.EventMeetingEnded:
			fmt.Println("meeting ended by owner")
			return

		case sigclient.ErrorType:
			log.Printf("server error: %s: %s", ev.Err.Code, ev.Err.Msg)
		}
	}
}

func chatLoop(ctx context.Context, client *sigclient.Client, sender string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			err := client.SendChat(ctx, proto.ChatMessageData{
				Sender: sender,
				Text:   text,
			})
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func guestToken(ctx context.Context, server string) (string, error) {
	return postForToken(ctx, server+"/api/guest", "", nil)
}

func createMeeting(ctx context.Context, server, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/meetings", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func postForToken(ctx context.Context, url, contentType string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}
