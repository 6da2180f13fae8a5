package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // pairs of users chatting with each other
	MsgCount  = 20 // messages per user
)

func main() {
	log.Printf("starting load test: %d users, %d messages each", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("load test complete")
}

// fakeID builds a deterministic 24-hex user id for a pair member.
func fakeID(pairID int, side string) string {
	return fmt.Sprintf("%022d", pairID) + side
}

func runPair(pairID int) {
	userA := fakeID(pairID, "0a")
	userB := fakeID(pairID, "0b")

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, userA, userB)
	go spamChat(&wsWg, userB, userA)
	wsWg.Wait()
}

func spamChat(wg *sync.WaitGroup, from, to string) {
	defer wg.Done()

	url := fmt.Sprintf("%s?from=%s&to=%s", WSURL, from, to)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", from, err)
		return
	}
	defer conn.Close()

	// Drain server traffic (history replay, relayed messages, acks) so the
	// connection's buffers never fill up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		frame, _ := json.Marshal(map[string]any{
			"type":    "chat",
			"to":      to,
			"from":    from,
			"message": fmt.Sprintf("load test message %d from %s", i, from),
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("send failed [%s]: %v", from, err)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("%s finished sending %d messages", from, MsgCount)
}
