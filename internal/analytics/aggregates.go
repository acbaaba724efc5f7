package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Event is the consumer-side view of one analytics message. Fields not used
// by an event type stay zero.
type Event struct {
	Event  string    `json:"event"`
	Room   string    `json:"room"`
	By     string    `json:"by"`
	Name   string    `json:"name"`
	Result string    `json:"result"`
	TS     time.Time `json:"ts"`
}

func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, err
	}
	if ev.Event == "" {
		return ev, fmt.Errorf("missing event name")
	}
	return ev, nil
}

type ShooterStats struct {
	Name  string
	Shots int
	Hits  int
}

// Report is a point-in-time copy of the aggregates.
type Report struct {
	Paired      int
	Ended       int
	AvgDuration time.Duration
	Shots       int
	Hits        int
	Misses      int
	Rematches   int
	Messages    int
	TopShooters []ShooterStats
}

func (r Report) HitRatio() float64 {
	if r.Hits+r.Misses == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Hits+r.Misses)
}

type Aggregates struct {
	mu        sync.Mutex
	paired    int
	ended     int
	totalDur  time.Duration
	timedEnds int
	shots     int
	hits      int
	misses    int
	rematches int
	messages  int
	starts    map[string]time.Time
	shooters  map[string]*ShooterStats
}

func NewAggregates() *Aggregates {
	return &Aggregates{
		starts:   map[string]time.Time{},
		shooters: map[string]*ShooterStats{},
	}
}

func (a *Aggregates) Add(ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Event {
	case EventMatchPaired:
		a.paired++
		a.starts[ev.Room] = ev.TS
	case EventShot:
		a.shots++
		a.shooter(ev.By, ev.Name).Shots++
	case EventShotResult:
		// by is the attacker the verdict was reported for
		if ev.Result == "hit" {
			a.hits++
			a.shooter(ev.By, ev.Name).Hits++
		} else {
			a.misses++
		}
	case EventRematch:
		a.rematches++
	case EventChat:
		a.messages++
	case EventMatchEnd:
		a.ended++
		if start, ok := a.starts[ev.Room]; ok {
			a.totalDur += ev.TS.Sub(start)
			a.timedEnds++
			delete(a.starts, ev.Room)
		}
	}
}

func (a *Aggregates) shooter(id, name string) *ShooterStats {
	s, ok := a.shooters[id]
	if !ok {
		s = &ShooterStats{Name: id}
		a.shooters[id] = s
	}
	if name != "" {
		s.Name = name
	}
	return s
}

// Report copies the aggregates, keeping the top n shooters by hits.
func (a *Aggregates) Report(n int) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := Report{
		Paired:    a.paired,
		Ended:     a.ended,
		Shots:     a.shots,
		Hits:      a.hits,
		Misses:    a.misses,
		Rematches: a.rematches,
		Messages:  a.messages,
	}
	if a.timedEnds > 0 {
		r.AvgDuration = a.totalDur / time.Duration(a.timedEnds)
	}
	for _, s := range a.shooters {
		r.TopShooters = append(r.TopShooters, *s)
	}
	sort.Slice(r.TopShooters, func(i, j int) bool {
		if r.TopShooters[i].Hits != r.TopShooters[j].Hits {
			return r.TopShooters[i].Hits > r.TopShooters[j].Hits
		}
		return r.TopShooters[i].Name < r.TopShooters[j].Name
	})
	if len(r.TopShooters) > n {
		r.TopShooters = r.TopShooters[:n]
	}
	return r
}

func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "---- Analytics Snapshot ----")
	fmt.Fprintf(w, "Matches paired: %d, ended: %d\n", r.Paired, r.Ended)
	fmt.Fprintf(w, "Avg duration  : %v\n", r.AvgDuration.Round(time.Second))
	fmt.Fprintf(w, "Shots: %d, hits: %d, misses: %d (hit ratio %.2f)\n", r.Shots, r.Hits, r.Misses, r.HitRatio())
	fmt.Fprintf(w, "Rematches: %d, chat messages: %d\n", r.Rematches, r.Messages)
	fmt.Fprintln(w, "Top shooters:")
	for _, s := range r.TopShooters {
		fmt.Fprintf(w, "  %s: %d hits / %d shots\n", s.Name, s.Hits, s.Shots)
	}
	fmt.Fprintln(w, "----------------------------")
}
