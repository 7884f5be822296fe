package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmline/therapy-booking/internal/config"
	"github.com/calmline/therapy-booking/internal/db"
)

// The simulator hammers the booking API with concurrent availability
// reads, bookings for the same hot slots, and payment-lifecycle updates.
// Conflicts (409) are the interesting outcome: exactly one of N racing
// bookings for a slot should succeed.

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	PaymentRatio  float64
	ReadRatio     float64
	ClientLimit   int
	ProviderLimit int
	AdminID       uuid.UUID
	PostgresDSN   string
}

type bookedAppointment struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	ProviderID uuid.UUID
}

type DataPool struct {
	Clients   []uuid.UUID
	Providers []uuid.UUID

	mu           sync.RWMutex
	appointments []bookedAppointment

	// availability cache per provider, refreshed opportunistically
	availMu sync.RWMutex
	avail   map[uuid.UUID][]slotRef
}

type slotRef struct {
	Date  string
	Start string
	End   string
}

func (dp *DataPool) AddAppointment(a bookedAppointment) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, a)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (bookedAppointment, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return bookedAppointment{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

func (dp *DataPool) SetAvailability(providerID uuid.UUID, slots []slotRef) {
	dp.availMu.Lock()
	defer dp.availMu.Unlock()
	if dp.avail == nil {
		dp.avail = make(map[uuid.UUID][]slotRef)
	}
	dp.avail[providerID] = slots
}

func (dp *DataPool) GetRandomSlot(providerID uuid.UUID, rng *rand.Rand) (slotRef, bool) {
	dp.availMu.RLock()
	defer dp.availMu.RUnlock()
	slots := dp.avail[providerID]
	if len(slots) == 0 {
		return slotRef{}, false
	}
	// Deliberately bias toward the first few slots so workers collide
	idx := rng.Intn(len(slots))
	if rng.Float64() < 0.5 {
		idx = rng.Intn(min(4, len(slots)))
	}
	return slots[idx], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
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

type Metrics struct {
	Availability OperationMetrics
	Booking      OperationMetrics
	Upload       OperationMetrics
	Verify       OperationMetrics
	Confirm      OperationMetrics
	ReadByID     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f payment=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.PaymentRatio, cfg.ReadRatio)

	// Load data from Postgres
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d clients, %d providers", len(dataPool.Clients), len(dataPool.Providers))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	// Run simulation
	sim.Run()

	// Print report
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.4),
		PaymentRatio:  getFloat("SIM_PAYMENT_RATIO", 0.3),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		ClientLimit:   getInt("SIM_CLIENT_LIMIT", 1000),
		ProviderLimit: getInt("SIM_PROVIDER_LIMIT", 20),
		AdminID:       uuid.New(),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.PaymentRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.PaymentRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM clients LIMIT $1
	`, cfg.ClientLimit)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Clients = append(dataPool.Clients, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT DISTINCT p.id
		FROM providers p
		JOIN schedule_days d ON d.provider_id = p.id AND d.enabled
		LIMIT $1
	`, cfg.ProviderLimit)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Providers = append(dataPool.Providers, id)
	}

	if len(dataPool.Clients) == 0 {
		return nil, fmt.Errorf("no clients loaded")
	}
	if len(dataPool.Providers) == 0 {
		return nil, fmt.Errorf("no providers with schedules loaded")
	}

	return dataPool, nil
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
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.PaymentRatio:
				s.doPaymentStep(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doAvailability(ctx, rng)
				} else {
					s.doReadByID(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	providerID := s.pool.Providers[rng.Intn(len(s.pool.Providers))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/providers/%s/availability?days=7", s.config.APIBaseURL, providerID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true

			var availResp struct {
				Days []struct {
					Date  string `json:"date"`
					Slots []struct {
						Start string `json:"start"`
						End   string `json:"end"`
					} `json:"slots"`
				} `json:"days"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &availResp) == nil {
				var slots []slotRef
				for _, day := range availResp.Days {
					for _, sl := range day.Slots {
						slots = append(slots, slotRef{Date: day.Date, Start: sl.Start, End: sl.End})
					}
				}
				s.pool.SetAvailability(providerID, slots)
			}
		}
	}

	s.metrics.Availability.Record(latency, success, false)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	providerID := s.pool.Providers[rng.Intn(len(s.pool.Providers))]
	clientID := s.pool.Clients[rng.Intn(len(s.pool.Clients))]

	slot, ok := s.pool.GetRandomSlot(providerID, rng)
	if !ok {
		// No cached availability yet; fetch it instead
		s.doAvailability(ctx, rng)
		return
	}

	start := time.Now()

	reqBody := map[string]string{
		"client_id":      clientID.String(),
		"provider_id":    providerID.String(),
		"date":           slot.Date,
		"start":          slot.Start,
		"end":            slot.End,
		"payment_method": "bank_transfer",
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				json.Unmarshal(bodyBytes, &apptResp)
				if apptResp.ID != uuid.Nil {
					s.pool.AddAppointment(bookedAppointment{
						ID:         apptResp.ID,
						ClientID:   clientID,
						ProviderID: providerID,
					})
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

// doPaymentStep fires a random lifecycle step at a previously created
// appointment. Invalid-transition conflicts are expected; the report
// shows how many landed.
func (s *Simulator) doPaymentStep(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	switch rng.Intn(3) {
	case 0:
		s.doUploadProof(ctx, appt)
	case 1:
		s.doStatusPatch(ctx, appt, "payment_verified", "admin", s.config.AdminID, &s.metrics.Verify)
	default:
		s.doStatusPatch(ctx, appt, "confirmed", "provider", appt.ProviderID, &s.metrics.Confirm)
	}
}

func (s *Simulator) doUploadProof(ctx context.Context, appt bookedAppointment) {
	start := time.Now()

	reqBody := map[string]string{
		"proof_ref": "sim/" + uuid.NewString(),
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/payment-proof", s.config.APIBaseURL, appt.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Upload.Record(latency, success, conflict)
}

func (s *Simulator) doStatusPatch(ctx context.Context, appt bookedAppointment, status, role string, actorID uuid.UUID, om *OperationMetrics) {
	start := time.Now()

	reqBody := map[string]string{
		"status":     status,
		"actor_role": role,
		"actor_id":   actorID.String(),
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "PATCH",
		fmt.Sprintf("%s/appointments/%s/payment-status", s.config.APIBaseURL, appt.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusForbidden
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, appt.ID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Upload proof", &s.metrics.Upload)
	printOperationReport("Verify", &s.metrics.Verify)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
