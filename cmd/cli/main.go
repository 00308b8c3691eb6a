package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vestra-cli",
		Short: "Vestra CLI tool",
		Long:  `A command line interface for interacting with the Vestra API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Vestra API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's credit balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showBalance(args[0])
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "Show an account's ledger history",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showHistory(args[0])
		},
	}

	accountCmd.AddCommand(balanceCmd, historyCmd)
	rootCmd.AddCommand(accountCmd)

	providerCmd := &cobra.Command{
		Use:   "provider",
		Short: "Generation provider operations",
	}

	providerGetCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the active generation provider",
		Run: func(cmd *cobra.Command, args []string) {
			showProvider()
		},
	}

	providerSetCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Switch the active generation provider",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			setProvider(args[0])
		},
	}

	providerCmd.AddCommand(providerGetCmd, providerSetCmd)
	rootCmd.AddCommand(providerCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func showBalance(accountID string) {
	result := getJSON("/api/v1/accounts/" + accountID)

	fmt.Printf("Account: %s\n", result["id"])
	fmt.Printf("Balance: %v credits\n", result["balance"])
	fmt.Printf("Status:  %s\n", result["status"])
}

func showHistory(accountID string) {
	result := getJSON("/api/v1/accounts/" + accountID + "/entries")

	entries, ok := result["entries"].([]any)
	if !ok {
		fmt.Println("No entries")
		return
	}

	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("%-28s %8v  %-16s %s\n",
			entry["created_at"], entry["delta"], entry["kind"], entry["reason"])
	}
}

func showProvider() {
	result := getJSON("/api/v1/admin/settings/provider")

	fmt.Printf("Provider: %s\n", result["provider"])
	fmt.Printf("Known:    %v\n", result["known"])
}

func setProvider(name string) {
	client := &http.Client{Timeout: timeout}

	body, _ := json.Marshal(map[string]string{"provider": name})
	req, err := http.NewRequest(http.MethodPut, baseURL+"/api/v1/admin/settings/provider", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Provider switch FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	fmt.Printf("Provider switched to %s\n", name)
}

func getJSON(path string) map[string]any {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	return result
}
