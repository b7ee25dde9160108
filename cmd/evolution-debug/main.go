package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var addr, command, mode string
	var target, targetHigh, targetLow float64
	flag.StringVar(&addr, "addr", "http://localhost:8090", "Base URL of the bridge API")
	flag.StringVar(&command, "cmd", "", "Command to run: status, set-mode, set-temp, set-fan")
	flag.StringVar(&mode, "mode", "", "Mode for set-mode (heat, cool, heat_cool, off) or set-fan (auto, low, med, high)")
	flag.Float64Var(&target, "target", 0, "Target temperature for set-temp")
	flag.Float64Var(&targetHigh, "target-high", 0, "High setpoint for set-temp")
	flag.Float64Var(&targetLow, "target-low", 0, "Low setpoint for set-temp")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of evolution-debug:")
		fmt.Println("  -addr string\tBase URL of the bridge API (default 'http://localhost:8090')")
		fmt.Println("  -cmd string\tCommand to run: status, set-mode, set-temp, set-fan")
		fmt.Println("  -mode string\tMode for set-mode or set-fan")
		fmt.Println("  -target float\tTarget temperature for set-temp")
		fmt.Println("  -target-high float\tHigh setpoint for set-temp")
		fmt.Println("  -target-low float\tLow setpoint for set-temp")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	client := &http.Client{Timeout: 60 * time.Second}

	var err error
	switch command {
	case "status":
		err = status(client, addr)
	case "set-mode":
		if mode == "" {
			fmt.Println("Error: mode is required")
			os.Exit(1)
		}
		err = put(client, addr+"/api/mode", map[string]interface{}{"mode": mode})
	case "set-temp":
		body := map[string]interface{}{}
		if target != 0 {
			body["target"] = target
		}
		if targetHigh != 0 {
			body["target_high"] = targetHigh
		}
		if targetLow != 0 {
			body["target_low"] = targetLow
		}
		if len(body) == 0 {
			fmt.Println("Error: at least one of -target, -target-high, -target-low is required")
			os.Exit(1)
		}
		err = put(client, addr+"/api/temperature", body)
	case "set-fan":
		if mode == "" {
			fmt.Println("Error: mode is required")
			os.Exit(1)
		}
		err = put(client, addr+"/api/fan", map[string]interface{}{"mode": mode})
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func status(client *http.Client, addr string) error {
	resp, err := client.Get(addr + "/api/state")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func put(client *http.Client, url string, body map[string]interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
