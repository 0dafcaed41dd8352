package cluster

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/go-sif/accrue/logging"
	"google.golang.org/grpc/peer"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// workerDescriptor identifies a registered Worker
type workerDescriptor struct {
	ID    string
	Host  string
	Port  int
	Slots int
}

func (w *workerDescriptor) connectionString() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

func (w *workerDescriptor) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"id":    w.ID,
		"port":  w.Port,
		"slots": w.Slots,
	})
}

func workerDescriptorFromStruct(s *structpb.Struct) (*workerDescriptor, error) {
	fields := s.GetFields()
	id := fields["id"].GetStringValue()
	if len(id) == 0 {
		return nil, fmt.Errorf("worker registration is missing an id")
	}
	port := int(fields["port"].GetNumberValue())
	if port <= 0 {
		return nil, fmt.Errorf("worker %s registered without a port", id)
	}
	slots := int(fields["slots"].GetNumberValue())
	if slots <= 0 {
		slots = 1
	}
	return &workerDescriptor{ID: id, Port: port, Slots: slots}, nil
}

type clusterServer struct {
	lock    sync.Mutex
	workers map[string]*workerDescriptor
	joined  chan struct{} // signalled on each registration
	log     *logging.Logger
}

// createClusterServer creates a new cluster server
func createClusterServer(log *logging.Logger) *clusterServer {
	return &clusterServer{workers: make(map[string]*workerDescriptor), joined: make(chan struct{}, 1), log: log}
}

// RegisterWorker registers new workers with the cluster
func (s *clusterServer) RegisterWorker(ctx context.Context, req *structpb.Struct) (*timestamppb.Timestamp, error) {
	w, err := workerDescriptorFromStruct(req)
	if err != nil {
		return nil, err
	}
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("Unable to fetch peer data for connecting worker %s", w.ID)
	}
	tcpAddr, ok := p.Addr.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("Connecting worker %s is not using TCP", w.ID)
	}
	w.Host = tcpAddr.IP.String()
	s.lock.Lock()
	if _, exists := s.workers[w.ID]; exists {
		s.lock.Unlock()
		return nil, fmt.Errorf("Worker %s is already registered", w.ID)
	}
	s.workers[w.ID] = w
	s.lock.Unlock()
	select {
	case s.joined <- struct{}{}:
	default:
	}
	s.log.Infof("Registered worker %s at %s with %d slot(s)", w.ID, w.connectionString(), w.Slots)
	return timestamppb.Now(), nil
}

// NumberOfWorkers returns the current worker count
func (s *clusterServer) NumberOfWorkers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.workers)
}

// Workers retrieves the registered workers, ordered by ID
func (s *clusterServer) Workers() []*workerDescriptor {
	s.lock.Lock()
	defer s.lock.Unlock()
	result := make([]*workerDescriptor, 0, len(s.workers))
	for _, w := range s.workers {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// forget removes workers which have been stopped
func (s *clusterServer) forget(workers []*workerDescriptor) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, w := range workers {
		delete(s.workers, w.ID)
	}
}

func (s *clusterServer) waitForWorkers(ctx context.Context, numWorkers int) error {
	for {
		if s.NumberOfWorkers() >= numWorkers {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("only %d of %d workers joined: %w", s.NumberOfWorkers(), numWorkers, ctx.Err())
		case <-s.joined:
		case <-time.After(time.Second):
			// check again
		}
	}
}
