package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8080"
	shoppers       = 10
	addsPerShopper = 50
)

type cartResponse struct {
	SessionID string `json:"session_id"`
	Cart      struct {
		Items []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
		Count int `json:"count"`
	} `json:"cart"`
}

// Hammers one shared session from many goroutines, then checks that no
// line item was duplicated and no add was lost.
func main() {
	baseURL := flag.String("url", defaultBaseURL, "minicart HTTP base URL")
	productID := flag.Int64("product", 1, "catalog product id to add")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var opened cartResponse
	if err := call(client, http.MethodPost, *baseURL+"/api/sessions", nil, &opened); err != nil {
		log.Fatalf("failed to open session: %v", err)
	}
	itemsURL := fmt.Sprintf("%s/api/sessions/%s/cart/items", *baseURL, opened.SessionID)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < addsPerShopper; j++ {
				body := map[string]int64{"product_id": *productID}
				if err := call(client, http.MethodPost, itemsURL, body, nil); err != nil {
					failCount.Add(1)
					continue
				}
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	var final cartResponse
	if err := call(client, http.MethodGet, fmt.Sprintf("%s/api/sessions/%s/cart", *baseURL, opened.SessionID), nil, &final); err != nil {
		log.Fatalf("failed to read cart: %v", err)
	}

	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Session:          %s\n", opened.SessionID)
	fmt.Printf("Total Requests:   %d\n", shoppers*addsPerShopper)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	if len(final.Cart.Items) == 1 {
		fmt.Println("PASS: Exactly one line item")
	} else {
		fmt.Printf("FAIL: Expected 1 line item, got %d\n", len(final.Cart.Items))
		ok = false
	}

	if final.Cart.Count == int(success) {
		fmt.Printf("PASS: Cart count %d matches successful adds\n", final.Cart.Count)
	} else {
		fmt.Printf("FAIL: Expected count %d, got %d\n", success, final.Cart.Count)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
}

func call(client *http.Client, method, url string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
