// Command journal-tail follows a JSONL journal file and prints events as
// the simulation appends them. It is a read-only consumer; the core
// never knows it is there.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ticket-dealer-go/journal"
)

func main() {
	path := flag.String("file", "journal.jsonl", "journal file to follow")
	flag.Parse()

	follower, err := journal.NewFollower(*path)
	if err != nil {
		log.Fatalf("open follower: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = follower.Run(ctx, func(e journal.Event) {
		fmt.Printf("%6d day=%-4d %-14s", e.Seq, e.Day, e.Kind)
		if e.Bucket != "" {
			fmt.Printf(" bucket=%s", e.Bucket)
		}
		if e.From != "" {
			fmt.Printf(" from=%s", e.From)
		}
		if e.To != "" {
			fmt.Printf(" to=%s", e.To)
		}
		if e.Amount != "" {
			fmt.Printf(" amount=%s", e.Amount)
		}
		if e.Price != "" {
			fmt.Printf(" price=%s interior=%t", e.Price, e.Interior)
		}
		if e.Recovery != "" {
			fmt.Printf(" recovery=%s", e.Recovery)
		}
		fmt.Println()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "follow: %v\n", err)
		os.Exit(1)
	}
}
