package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/log"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Services          map[wire.Service]*ServiceStats
	Connections       map[string]*ConnectionStats
	Notifications     int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ServiceStats counts the requests and responses of one service.
type ServiceStats struct {
	Requests  int
	Responses int
	Failures  int
	TotalTime time.Duration
}

// MeanTime returns the average processing time of the responses.
func (s *ServiceStats) MeanTime() time.Duration {
	if s.Responses == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Responses)
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Remote    string
}

// Collect reads every event in the file into Stats.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Services:          make(map[wire.Service]*ServiceStats),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.ConnectionID != "" {
		conn, ok := s.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if conn.Remote == "" {
			conn.Remote = event.RemoteAddr
		}
	}

	if msg := event.Message; msg != nil {
		if msg.Type == wire.MessageTypeNotification {
			s.Notifications++
		}
		if msg.Service != nil {
			svc, ok := s.Services[*msg.Service]
			if !ok {
				svc = &ServiceStats{}
				s.Services[*msg.Service] = svc
			}
			switch msg.Type {
			case wire.MessageTypeRequest:
				svc.Requests++
			case wire.MessageTypeResponse:
				svc.Responses++
				if msg.Error != nil {
					svc.Failures++
				}
				if msg.ProcessingTime != nil {
					svc.TotalTime += *msg.ProcessingTime
				}
			}
		}
	}

	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the file and prints the statistics to w.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== BACnet Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Services) > 0 {
		services := make([]wire.Service, 0, len(stats.Services))
		for svc := range stats.Services {
			services = append(services, svc)
		}
		sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })

		fmt.Fprintln(w, "Services:")
		for _, svc := range services {
			ss := stats.Services[svc]
			fmt.Fprintf(w, "  %-30s %d requests, %d responses, %d failed, mean %s\n",
				svc.String()+":", ss.Requests, ss.Responses, ss.Failures, formatDuration(ss.MeanTime()))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Notifications: %d\n", stats.Notifications)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.Remote != "" {
				fmt.Fprintf(w, "           Remote: %s\n", c.stats.Remote)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
