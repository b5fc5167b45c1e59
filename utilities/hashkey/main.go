// Command hashkey generates a bcrypt hash of a gateway key for use in
// the server config's auth.key_hash field.
package main

import (
	"fmt"
	"os"

	"github.com/stonelantern/questhall/internal/server"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <key>\n", os.Args[0])
		os.Exit(1)
	}

	hash, err := server.HashKey(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
