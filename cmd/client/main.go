// Command client is an interactive REPL for talking to a Chord ring
// over its HTTP surface: put/get values, inspect a member's routing
// state, and walk the ring.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "address of a ring member to connect to")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	httpClient := &http.Client{Timeout: *timeout}
	current := *addr

	fmt.Printf("chord interactive client. connected to %s\n", current)
	fmt.Println("commands: get <key> | put <key> <value> | info | network | use <addr> | exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("chord[%s]> ", current))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "get":
			if len(args) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			runGet(httpClient, current, args[1])

		case "put":
			if len(args) < 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			runPut(httpClient, current, args[1], strings.Join(args[2:], " "))

		case "info":
			runNodeInfo(httpClient, current)

		case "network":
			runNetwork(httpClient, current)

		case "use":
			if len(args) != 2 {
				fmt.Println("usage: use <addr>")
				continue
			}
			current = args[1]
			fmt.Printf("switched to %s\n", current)

		case "exit", "quit":
			fmt.Println("bye")
			return

		default:
			fmt.Printf("unknown command: %s\n", args[0])
		}
	}
}

func runGet(c *http.Client, addr, key string) {
	resp, err := c.Get("http://" + addr + "/storage/" + key)
	if err != nil {
		fmt.Printf("get failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		fmt.Printf("key not found: %s\n", key)
		return
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("get failed: status %d: %s\n", resp.StatusCode, string(body))
		return
	}
	fmt.Printf("%s = %s\n", key, string(body))
}

func runPut(c *http.Client, addr, key, value string) {
	req, err := http.NewRequest(http.MethodPut, "http://"+addr+"/storage/"+key, bytes.NewBufferString(value))
	if err != nil {
		fmt.Printf("put failed: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := c.Do(req)
	if err != nil {
		fmt.Printf("put failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("put failed: status %d: %s\n", resp.StatusCode, string(body))
		return
	}
	fmt.Println("ok")
}

func runNodeInfo(c *http.Client, addr string) {
	resp, err := c.Get("http://" + addr + "/node-info")
	if err != nil {
		fmt.Printf("node-info failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	var info struct {
		NodeHash  string   `json:"node_hash"`
		Successor string   `json:"successor"`
		Others    []string `json:"others"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		fmt.Printf("failed to decode node-info: %v\n", err)
		return
	}
	fmt.Printf("node_hash=%s\nsuccessor=%s\nfingers=%v\n", info.NodeHash, info.Successor, info.Others)
}

func runNetwork(c *http.Client, addr string) {
	resp, err := c.Get("http://" + addr + "/network")
	if err != nil {
		fmt.Printf("network failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	var addrs []string
	if err := json.NewDecoder(resp.Body).Decode(&addrs); err != nil {
		fmt.Printf("failed to decode network: %v\n", err)
		return
	}
	for _, a := range addrs {
		fmt.Println(a)
	}
}

