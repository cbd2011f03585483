package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/gatefast"
)

func main() {
	baseURL := os.Getenv("GATE_BASE_URL")
	wsURL := os.Getenv("GATE_WS_URL")
	token := os.Getenv("GATE_TOKEN")

	if baseURL == "" {
		log.Fatal("GATE_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bot " + token
		}
		return m
	}

	client := gatefast.NewClient(baseURL,
		gatefast.WithHeaderProvider(headers),
		gatefast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: name=%s version=%s ws=%s rate=%d", cfg.Name, cfg.Version, cfg.WSPath, cfg.MsgRate)
	}

	if wsURL == "" {
		log.Println("GATE_WS_URL not set; skipping WS check")
		return
	}

	ws := gatefast.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gatefast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *gatefast.Message) {
		fmt.Printf("WS msg channel=%s from=%s text=%q\n", msg.Channel, msg.UserID, msg.Text)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
