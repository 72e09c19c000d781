package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"Kluivert-Agent/sdk/go/kluivert"
)

func main() {
	addr := os.Getenv("KLUIVERT_URL")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	client := kluivert.NewClient(addr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	session, err := client.InitAgent(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("agent %s on %s (thread %q)\n", session.Agent.WalletAddress, session.Agent.NetworkID, session.Config.ThreadID)

	reply, err := client.Chat(ctx, "What is my wallet balance?")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(reply)
}
