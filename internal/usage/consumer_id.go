package usage

import (
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID names this process inside the token-usage consumer group.
// A configured name is used as given so a restarted worker reads its own
// pending entries again; otherwise host, pid and a ULID keep concurrent
// workers apart, and stale ones are drained by the claim loop.
func NewConsumerID(configured string) string {
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "usage-worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), ulid.Make())
}
