// Command client is a small interactive room client for manual testing.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v any) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func createRoom(host string, uid int64, username string) (int64, error) {
	body, _ := json.Marshal(models.CreateRoomRequest{
		Name:       username + "'s room",
		MaxPlayers: 8,
		Host:       &models.HostInfo{UID: uid, Username: username},
	})
	resp, err := http.Post("http://"+host+"/api/createroom", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var msg models.ErrorMessage
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return 0, fmt.Errorf("create room: %s %s", resp.Status, msg.Message)
	}
	var created models.CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// command turns one line of input into a message.
func command(line string) (uint16, any, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch name {
	case "chat":
		return network.MsgTypeChatMessage, models.ChatMessage{Message: arg}, nil
	case "ready":
		return network.MsgTypePlayerStatusChanged, models.PlayerStatusChanged{Status: models.PlayerStatusReady}, nil
	case "beatmap":
		if arg == "" {
			return network.MsgTypeBeatmapChanged, nil, nil
		}
		return network.MsgTypeBeatmapChanged, models.Beatmap{MD5: arg}, nil
	case "play":
		return network.MsgTypePlayBeatmap, nil, nil
	case "load":
		return network.MsgTypeBeatmapLoadComplete, nil, nil
	case "skip":
		return network.MsgTypeSkipRequested, nil, nil
	case "score":
		score, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("score needs a number")
		}
		return network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: score}, nil
	case "name":
		return network.MsgTypeRoomNameChanged, models.RoomNameChanged{Name: arg}, nil
	}
	return 0, nil, fmt.Errorf("unknown command %q", name)
}

func main() {
	host := flag.String("host", "localhost:8080", "server address")
	roomID := flag.Int64("room", 0, "room to join, 0 creates one")
	uid := flag.Int64("uid", 1, "account id")
	username := flag.String("username", "player", "display name")
	password := flag.String("password", "", "room password")
	version := flag.Int("version", 7, "client multiplayer version")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	if *roomID == 0 {
		id, err := createRoom(*host, *uid, *username)
		if err != nil {
			log.Fatalf("Create room failed: %v", err)
		}
		log.Printf("Created room %d", id)
		*roomID = id
	}

	query := url.Values{}
	query.Set("uid", strconv.FormatInt(*uid, 10))
	query.Set("username", *username)
	query.Set("version", strconv.Itoa(*version))
	if *password != "" {
		query.Set("password", *password)
	}
	u := url.URL{Scheme: "ws", Host: *host, Path: fmt.Sprintf("/multi/%d", *roomID), RawQuery: query.Encode()}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Printf("<- RECV %s: %s", network.MsgName(packet.MsgID), string(packet.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	log.Println("Commands: chat <text>, ready, beatmap [md5], play, load, skip, score <n>, name <text>")
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line := <-lines:
			msgID, payload, err := command(line)
			if err != nil {
				log.Println(err)
				continue
			}
			if err := send(c, msgID, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT %s", network.MsgName(msgID))
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
