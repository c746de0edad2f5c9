package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
)

var (
	addr = flag.String("addr", "localhost:9999", "chat server address")
	room = flag.String("room", "general", "room to join")
	user = flag.String("user", "", "username")
)

func main() {
	flag.Parse()

	username := *user
	if username == "" {
		username = promptUsername()
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", *addr)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go readMessages(conn, done)

	fmt.Fprintf(conn, "JOIN %s %s\n", *room, username)

	fmt.Println("Write messages (press Enter to send):")
	writeMessages(conn, *room, interrupt, done)
}

func promptUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your username: ")
	scanner.Scan()
	return scanner.Text()
}

// readMessages prints server lines. Broadcast lines arrive as
// "<sender>|<text>" or "USERJOIN|<user>|<ordinal>"; everything else is a
// direct reply and is printed as-is.
func readMessages(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if kind, rest, ok := strings.Cut(line, "|"); ok {
			if kind == "USERJOIN" {
				name, _, _ := strings.Cut(rest, "|")
				fmt.Printf("*** %s joined ***\n", name)
			} else {
				fmt.Printf("%s: %s\n", kind, rest)
			}
			continue
		}
		fmt.Println(line)
	}
	log.Println("Disconnected from server.")
}

func writeMessages(conn net.Conn, room string, interrupt chan os.Signal, done chan struct{}) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			fmt.Fprintln(conn, "QUIT")
			return
		case content, ok := <-lines:
			if !ok {
				fmt.Fprintln(conn, "QUIT")
				return
			}
			if content == "" {
				continue
			}
			fmt.Fprintf(conn, "SEND %s %s\n", room, content)
		}
	}
}
