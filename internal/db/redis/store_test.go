package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	s := NewStoreForTest(c)
	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error must carry the last ping failure, got %v", err)
	}
}

func TestWaitForReady_RecoversAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("PING")).
			Return(mock.ErrorResult(errors.New("LOADING dataset in memory"))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("PING")).
			Return(mock.Result(mock.RedisString("PONG"))),
	)

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"short", "longer than input", false},
		{"notempty", "", true},
	}
	for _, tc := range tests {
		if got := containsIgnoreCase(tc.s, tc.sub); got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

// --- hash.go tests ---

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f": "v"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "cbs:{b1}:meta")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"text_dim": mock.RedisString("384"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "cbs:{b1}:meta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["text_dim"] != "384" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestDel_Multiple(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "k1", "k2")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	n, err := s.Del(context.Background(), "k1", "k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestDel_NoKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c)
	n, err := s.Del(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Del() = %d, %v", n, err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42),
					mock.RedisArray(mock.RedisString("key1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("key2")),
			))
		}).Times(2)

	s := NewStoreForTest(c)
	keys, err := s.Scan(context.Background(), "cbs:{b1}:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

// --- kv.go tests ---

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "k" && cmd[3] == "EX" && cmd[4] == "60"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- group.go tests ---

func TestHSetGroup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(
					mock.RedisInt64(1), mock.RedisInt64(1),
					mock.RedisInt64(0), mock.RedisInt64(1),
					mock.RedisInt64(2),
				)),
			}
		})

	s := NewStoreForTest(c)
	err := s.HSetGroup(context.Background(), "cbs:{b}:tk:t1", []db.HashSetItem{
		{Key: "cbs:{b}:pt:1", Fields: map[string]string{"ticket_id": "t1"}},
		{Key: "cbs:{b}:pt:2", Fields: map[string]string{"ticket_id": "t1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sent[0][0] != "MULTI" || sent[len(sent)-1][0] != "EXEC" {
		t.Fatalf("pipeline not wrapped in MULTI/EXEC: %v", sent)
	}
	sadd := sent[5]
	if sadd[0] != "SADD" || sadd[1] != "cbs:{b}:tk:t1" || len(sadd) != 4 {
		t.Errorf("unexpected SADD: %v", sadd)
	}
}

// A re-ingested point must not keep fields of its previous version,
// e.g. an ocr_text vector when OCR now finds nothing.
func TestHSetGroup_ReplacesWholeHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(2), mock.RedisInt64(0))),
			}
		})

	s := NewStoreForTest(c)
	err := s.HSetGroup(context.Background(), "cbs:{b}:tk:t1", []db.HashSetItem{
		{Key: "cbs:{b}:pt:img0", Fields: map[string]string{"ticket_id": "t1", "vec_image": "x"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	del, hset := sent[1], sent[2]
	if del[0] != "DEL" || len(del) != 2 || del[1] != "cbs:{b}:pt:img0" {
		t.Fatalf("expected DEL of the point key before HSET, got %v", del)
	}
	if hset[0] != "HSET" || hset[1] != "cbs:{b}:pt:img0" {
		t.Fatalf("expected HSET after DEL, got %v", hset)
	}
	for _, arg := range hset {
		if arg == "vec_ocr_text" {
			t.Errorf("HSET carries a field the item does not have: %v", hset)
		}
	}
}

func TestHSetGroup_Aborted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	err := s.HSetGroup(context.Background(), "g", []db.HashSetItem{{Key: "k", Fields: map[string]string{"a": "b"}}})
	if !errors.Is(err, db.ErrTxAborted) {
		t.Errorf("expected ErrTxAborted, got %v", err)
	}
}

func TestHSetGroup_QueuedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisError("WRONGTYPE Operation against a key holding the wrong kind of value"),
				mock.RedisInt64(1),
			)),
		})

	s := NewStoreForTest(c)
	err := s.HSetGroup(context.Background(), "g", []db.HashSetItem{{Key: "k", Fields: map[string]string{"a": "b"}}})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestHSetGroup_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c)
	if err := s.HSetGroup(context.Background(), "g", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGroupMembers(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SMEMBERS", "g")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("a"), mock.RedisString("b"))))

	s := NewStoreForTest(c)
	members, err := s.GroupMembers(context.Background(), "g")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %v", members)
	}
}

func TestDelFromGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			del := cmds[1].Commands()
			srem := cmds[2].Commands()
			if del[0] != "DEL" || srem[0] != "SREM" || srem[1] != "g" {
				t.Errorf("unexpected commands: %v %v", del, srem)
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1))),
			}
		})

	s := NewStoreForTest(c)
	if err := s.DelFromGroup(context.Background(), "g", []string{"k"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EVALSHA"
		})).
		Return(mock.Result(mock.RedisInt64(3)))

	s := NewStoreForTest(c)
	n, err := s.DelGroup(context.Background(), "g")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisString("OK"))
		})

	def, err := db.NewIndex("cbs:b1:idx").
		Prefix("cbs:{b1}:pt:").
		Vector("vec_image", 1536, db.HNSW{M: 16, EFConstruct: 200}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(got, " ")
	want := "FT.CREATE cbs:b1:idx ON HASH PREFIX 1 cbs:{b1}:pt: SCHEMA " +
		"vec_image VECTOR HNSW 10 TYPE FLOAT32 DIM 1536 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if joined != want {
		t.Errorf("args:\n got %s\nwant %s", joined, want)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	def := &db.IndexDefinition{Name: "idx", Vectors: []db.VectorField{{Name: "v", Dim: 4}}}
	err := s.CreateIndex(context.Background(), def)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "idx"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	if err := s.DropIndex(context.Background(), "idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		want   bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))), true},
		{"redis unknown", mock.Result(mock.RedisError("Unknown index name")), false},
		{"valkey not found", mock.Result(mock.RedisError("Index with name 'idx' not found")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(tt.result)

			s := NewStoreForTest(c)
			got, err := s.IndexExists(context.Background(), "idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IndexExists = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisString("cbs:{b1}:pt:abc"),
				mock.RedisArray(
					mock.RedisString("__description_score"),
					mock.RedisString("0.1"),
					mock.RedisString("ticket_id"),
					mock.RedisString("t1"),
				),
			))
		})

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "cbs:b1:idx",
		Field:        "description",
		Vector:       []float32{0.1, 0.2},
		K:            10,
		EFRuntime:    64,
		ReturnFields: []string{"ticket_id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[2] != "*=>[KNN 10 @description $BLOB EF_RUNTIME 64]" {
		t.Errorf("query = %q", got[2])
	}
	if got[3] != "RETURN" || got[4] != "2" || got[5] != "__description_score" || got[6] != "ticket_id" {
		t.Errorf("RETURN clause = %v", got[3:7])
	}

	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Fields["ticket_id"] != "t1" {
		t.Errorf("ticket_id = %q", e.Fields["ticket_id"])
	}
	if _, ok := e.Fields["__description_score"]; ok {
		t.Error("score field must be stripped from fields")
	}
	if e.Score < 0.89 || e.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", e.Score)
	}
}

func TestSearchKNN_KeepsNegativeSimilarity(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("k"),
			mock.RedisArray(mock.RedisString("__image_score"), mock.RedisString("1.7")),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", Field: "image", Vector: []float32{1}, K: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Entries[0].Score; got > -0.69 || got < -0.71 {
		t.Errorf("score = %f, want -0.7", got)
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", Field: "title", Vector: []float32{1}, K: 1,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	tests := []struct {
		name string
		q    db.KNNQuery
	}{
		{"no index", db.KNNQuery{Field: "f", Vector: []float32{1}, K: 1}},
		{"no field", db.KNNQuery{IndexName: "i", Vector: []float32{1}, K: 1}},
		{"no vector", db.KNNQuery{IndexName: "i", Field: "f", K: 1}},
		{"zero k", db.KNNQuery{IndexName: "i", Field: "f", Vector: []float32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SearchKNN(context.Background(), &tt.q); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
