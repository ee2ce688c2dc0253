package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/storage/storetest"
)

// uriEnv names the variable enabling the integration suite.
const uriEnv = "GOAP_MONGODB_URI"

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	got := buildFilter(process.ListFilter{
		Status:   []process.Status{process.StatusCompleted, process.StatusStuck},
		Goal:     "shipped",
		FromTime: from,
		ToTime:   to,
	})

	status, ok := got["status"].(bson.M)
	if !ok {
		t.Fatalf("status filter = %v", got["status"])
	}
	if in, _ := status["$in"].([]string); len(in) != 2 || in[1] != "STUCK" {
		t.Errorf("status $in = %v, want [COMPLETED STUCK]", status["$in"])
	}
	if got["goal"] != "shipped" {
		t.Errorf("goal = %v, want shipped", got["goal"])
	}
	window, ok := got["created_at"].(bson.M)
	if !ok || window["$gte"] != from || window["$lt"] != to {
		t.Errorf("created_at = %v, want [%v, %v)", got["created_at"], from, to)
	}

	if empty := buildFilter(process.ListFilter{}); len(empty) != 0 {
		t.Errorf("buildFilter(empty) = %v, want empty", empty)
	}
}

func TestBuildFindOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter process.ListFilter
		want   bson.D
	}{
		{"default", process.ListFilter{}, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{"by id", process.ListFilter{OrderBy: process.OrderByID, Descending: true}, bson.D{{Key: "_id", Value: -1}}},
		{"by status", process.ListFilter{OrderBy: process.OrderByStatus}, bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := buildFindOptions(tt.filter)
			if fmt.Sprint(opts.Sort) != fmt.Sprint(tt.want) {
				t.Errorf("Sort = %v, want %v", opts.Sort, tt.want)
			}
		})
	}

	opts := buildFindOptions(process.ListFilter{Limit: 5, Offset: 10})
	if opts.Limit == nil || *opts.Limit != 5 || opts.Skip == nil || *opts.Skip != 10 {
		t.Errorf("Limit/Skip = %v/%v, want 5/10", opts.Limit, opts.Skip)
	}
}

func TestDocumentConversion(t *testing.T) {
	t.Parallel()

	p := storetest.NewProcess("proc-1", "shipped", time.Now(), process.StatusCompleted)
	doc, err := toDocument(p)
	if err != nil {
		t.Fatalf("toDocument() error = %v", err)
	}
	if doc.ID != "proc-1" || doc.Status != "COMPLETED" || doc.EndTime == nil {
		t.Errorf("toDocument() = %+v", doc)
	}

	back, err := fromDocument(doc)
	if err != nil {
		t.Fatalf("fromDocument() error = %v", err)
	}
	if back.Goal != p.Goal || back.History.Len() != 1 {
		t.Errorf("fromDocument() = %+v", back)
	}

	if _, err := fromDocument(&processDocument{Data: "{"}); err == nil {
		t.Error("fromDocument() expected error for corrupt data")
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	s := &ProcessStore{}
	if s.wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
	if err := s.wrapError(context.DeadlineExceeded); !errors.Is(err, process.ErrOperationTimeout) {
		t.Errorf("wrapError() = %v, want ErrOperationTimeout", err)
	}
	if err := s.wrapError(errors.New("boom")); !errors.Is(err, process.ErrConnectionFailed) {
		t.Errorf("wrapError() = %v, want ErrConnectionFailed", err)
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{WithPoolSize(25), WithQueryTimeout(time.Second), WithPoolSize(0), WithQueryTimeout(0)} {
		opt(&cfg)
	}
	if cfg.MaxPoolSize != 25 {
		t.Errorf("MaxPoolSize = %d, want 25", cfg.MaxPoolSize)
	}
	if cfg.QueryTimeout != time.Second {
		t.Errorf("QueryTimeout = %v, want 1s", cfg.QueryTimeout)
	}
}

func TestIntegration(t *testing.T) {
	uri := os.Getenv(uriEnv)
	if uri == "" {
		t.Skipf("%s not set", uriEnv)
	}
	ctx := context.Background()

	client, err := NewClient(ctx, DefaultConfig(), WithURI(uri), WithDatabase(fmt.Sprintf("goap_test_%d", time.Now().UnixNano())))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.db.Drop(ctx)
		_ = client.Close(ctx)
	})

	var seq int
	storetest.ProcessStore(t, func(t *testing.T) process.Store {
		seq++
		s := NewProcessStore(client, fmt.Sprintf("processes_%d", seq))
		if err := s.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes() error = %v", err)
		}
		return s
	})
}
