// simulate drives concurrent slot queries and booking attempts against
// a running api-server. Workers deliberately race each other for the
// same doctors and dates so the conflict path gets exercised.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	Doctors    int
	DaysAhead  int
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status == http.StatusOK || status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Rejected, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type slotRecord struct {
	SlotDate    string `json:"slotDate"`
	IsAvailable bool   `json:"isAvailable"`
	StartTime   struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	} `json:"startTime"`
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	query   OperationMetrics
	booking OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal("SIM_WORKERS and SIM_DURATION must be positive")
	}

	log.Printf("config: base_url=%s duration=%s workers=%d doctors=%d days_ahead=%d",
		cfg.APIBaseURL, cfg.Duration, cfg.Workers, cfg.Doctors, cfg.DaysAhead)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:   getDuration("SIM_DURATION", 30*time.Second),
		Workers:    getInt("SIM_WORKERS", 10),
		Doctors:    getInt("SIM_DOCTORS", 5),
		DaysAhead:  getInt("SIM_DAYS_AHEAD", 7),
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			// A narrow doctor/date pool keeps workers colliding on the
			// same slots, which is the point.
			doctorID := fmt.Sprintf("doc-%d", rng.Intn(s.config.Doctors)+1)
			date := time.Now().AddDate(0, 0, rng.Intn(s.config.DaysAhead)+1).Format("2006-01-02")

			slots, ok := s.querySlots(ctx, doctorID, date)
			if !ok || len(slots) == 0 {
				continue
			}

			candidates := slots[:0]
			for _, slot := range slots {
				if slot.IsAvailable {
					candidates = append(candidates, slot)
				}
			}
			if len(candidates) == 0 {
				continue
			}

			s.doBooking(ctx, rng, doctorID, candidates[rng.Intn(len(candidates))])
		}
	}
}

func (s *Simulator) querySlots(ctx context.Context, doctorID, date string) ([]slotRecord, bool) {
	start := time.Now()

	endpoint := fmt.Sprintf("%s/slots?doctorId=%s&date=%s",
		s.config.APIBaseURL, url.QueryEscape(doctorID), url.QueryEscape(date))

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		s.query.Record(latency, 0, err)
		return nil, false
	}
	defer resp.Body.Close()

	var slots []slotRecord
	decodeErr := json.NewDecoder(resp.Body).Decode(&slots)
	s.query.Record(latency, resp.StatusCode, decodeErr)

	return slots, resp.StatusCode == http.StatusOK && decodeErr == nil
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, doctorID string, slot slotRecord) {
	durations := []int{30, 60, 90}

	reqBody := map[string]any{
		"doctorId":        doctorID,
		"patientId":       uuid.NewString(),
		"appointmentDate": slot.SlotDate,
		"startTime": map[string]int{
			"hour":   slot.StartTime.Hour,
			"minute": slot.StartTime.Minute,
		},
		"serviceDurationMinutes": durations[rng.Intn(len(durations))],
		"appointmentType":        "IN_PERSON",
		"chiefComplaint":         "simulated visit",
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		s.booking.Record(latency, 0, err)
		return
	}
	defer resp.Body.Close()

	s.booking.Record(latency, resp.StatusCode, nil)
}

func (s *Simulator) PrintReport() {
	printOp := func(name string, om *OperationMetrics) {
		avg, min, max, p50, p95 := om.Stats()
		log.Printf("%s: total=%d success=%d conflict=%d rejected=%d error=%d",
			name, om.Total, om.Success, om.Conflict, om.Rejected, om.Error)
		log.Printf("%s latency: avg=%s min=%s max=%s p50=%s p95=%s",
			name, avg, min, max, p50, p95)
	}

	printOp("slot-query", &s.query)
	printOp("booking", &s.booking)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
