package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const loginPath = "/api/v1/login"

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	// Users are the names logins are spread across. Password is what they
	// were provisioned with.
	Users     []string
	Password  string
	CheckOnly bool
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Accepted      int64
	Rejected      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type attempt struct {
	Name      string `json:"name"`
	Password  string `json:"password"`
	CheckOnly bool   `json:"check_only"`
}

// profileMix is the share of attempts that use the right password, an
// unknown user name and a wrong password, in that order.
type profileMix struct {
	valid, unknownUser, wrongPassword int
}

func mixForProfile(profile string) (profileMix, bool) {
	switch strings.ToLower(profile) {
	case "", "mixed":
		return profileMix{valid: 70, unknownUser: 10, wrongPassword: 20}, true
	case "valid":
		return profileMix{valid: 100}, true
	case "invalid":
		return profileMix{unknownUser: 30, wrongPassword: 70}, true
	default:
		return profileMix{}, false
	}
}

func (m profileMix) next(r *rand.Rand, cfg Config) attempt {
	a := attempt{Name: cfg.Users[r.Intn(len(cfg.Users))], Password: cfg.Password, CheckOnly: cfg.CheckOnly}
	roll := r.Intn(m.valid + m.unknownUser + m.wrongPassword)
	switch {
	case roll < m.valid:
	case roll < m.valid+m.unknownUser:
		a.Name = fmt.Sprintf("loadgen-unknown-%d", r.Int63())
	default:
		a.Password = cfg.Password + "-wrong"
	}
	return a
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if len(cfg.Users) == 0 {
		return Result{}, errors.New("at least one user name is required")
	}
	if cfg.Password == "" {
		return Result{}, errors.New("password is required")
	}
	mix, ok := mixForProfile(cfg.Profile)
	if !ok {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := strings.TrimRight(cfg.BaseURL, "/") + loginPath

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, accepted, rejected, s2xx, s4xx, s5xx int64
	jobs := make(chan attempt, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				body, _ := json.Marshal(a)
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				switch {
				case resp.StatusCode == http.StatusOK:
					atomic.AddInt64(&accepted, 1)
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode == http.StatusUnauthorized:
					atomic.AddInt64(&rejected, 1)
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}()
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&total),
				Failures:      atomic.LoadInt64(&failures),
				Accepted:      atomic.LoadInt64(&accepted),
				Rejected:      atomic.LoadInt64(&rejected),
				Status2xx:     atomic.LoadInt64(&s2xx),
				Status4xx:     atomic.LoadInt64(&s4xx),
				Status5xx:     atomic.LoadInt64(&s5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- mix.next(r, cfg):
			case <-ctx.Done():
			}
		}
	}
}
