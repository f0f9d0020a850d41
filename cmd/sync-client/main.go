package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"manhwahub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP feed server address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	typeFilter := flag.String("type", "", "only show events of this type (library.update, library.delete)")
	flag.Parse()

	for {
		if err := run(*addr, *pretty, *typeFilter); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool, typeFilter string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev sync.LibraryEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			// not a library event? print raw
			fmt.Println(string(line))
			continue
		}
		if typeFilter != "" && ev.Type != typeFilter {
			continue
		}

		if !pretty {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
