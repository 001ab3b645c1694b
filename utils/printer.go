package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PrintItem is one receipt/ticket line.
type PrintItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// PrintJob is the payload the LAN printer bridge accepts on /print.
type PrintJob struct {
	JobID         string      `json:"job_id"`
	Items         []PrintItem `json:"items"`
	TableNumber   string      `json:"table_number"`
	WaiterName    string      `json:"waiter_name"`
	Date          string      `json:"date"`
	OrderID       string      `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	TotalAmount   float64     `json:"total_amount,omitempty"`
	ServiceAmount float64     `json:"service_amount,omitempty"`
	FinalTotal    float64     `json:"final_total,omitempty"`
	Type          string      `json:"type,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	FooterText    string      `json:"footer_text,omitempty"`
}

var printClient = &http.Client{Timeout: 10 * time.Second}

// PrintToPrinter posts a job to a printer bridge. Printing is fire-and-
// forget at the call sites: a failed print must never fail the order or
// payment that triggered it.
func PrintToPrinter(printerIP string, job PrintJob) error {
	if printerIP == "" {
		return fmt.Errorf("printer ip is empty")
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Date == "" {
		job.Date = time.Now().Format("02.01.2006 15:04")
	}

	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:9100/print", printerIP)
	resp, err := printClient.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("printer %s unreachable: %w", printerIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("printer %s returned status %d", printerIP, resp.StatusCode)
	}
	return nil
}
