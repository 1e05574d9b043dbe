package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- Mocks ---

type mockPoints struct {
	upserts    []*pb.UpsertPoints
	upsertErr  error
	lastSearch *pb.SearchPoints
	searchResp *pb.SearchResponse
	searchErr  error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upserts = append(m.upserts, in)
	return &pb.PointsOperationResponse{}, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.lastSearch = in
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	getResp   *pb.GetCollectionInfoResponse
	getErr    error
	created   *pb.CreateCollection
	createErr error
	deleted   bool
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Get(_ context.Context, _ *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	return m.getResp, m.getErr
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

func (m *mockCollections) Delete(_ context.Context, _ *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.deleted = true
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func collectionWithSize(size uint64) *pb.GetCollectionInfoResponse {
	return &pb.GetCollectionInfoResponse{
		Result: &pb.CollectionInfo{
			Config: &pb.CollectionConfig{
				Params: &pb.CollectionParams{
					VectorsConfig: &pb.VectorsConfig{
						Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{Size: size}},
					},
				},
			},
		},
	}
}

// --- Tests ---

func TestNewWithClients(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "sw-index")
	if vs.Collection() != "sw-index" {
		t.Fatalf("collection = %q", vs.Collection())
	}
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestInfo(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "other"}, {Name: "sw-index"}}},
		getResp:  collectionWithSize(1536),
	}
	info, err := NewWithClients(&mockPoints{}, cols, "sw-index").Info(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists || info.VectorSize != 1536 {
		t.Fatalf("info = %+v", info)
	}
}

func TestInfo_Missing(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	info, err := NewWithClients(&mockPoints{}, cols, "sw-index").Info(context.Background())
	if err != nil || info.Exists {
		t.Fatalf("info = %+v, err = %v", info, err)
	}
}

func TestInfo_Errors(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("rpc fail")}
	if _, err := NewWithClients(&mockPoints{}, cols, "x").Info(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
	cols = &mockCollections{
		listResp: &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "x"}}},
		getErr:   errors.New("get fail"),
	}
	if _, err := NewWithClients(&mockPoints{}, cols, "x").Info(context.Background()); err == nil {
		t.Fatal("expected get error")
	}
}

func TestCreateAndDeleteCollection(t *testing.T) {
	cols := &mockCollections{}
	vs := NewWithClients(&mockPoints{}, cols, "sw-index")
	if err := vs.CreateCollection(context.Background(), 8); err != nil {
		t.Fatal(err)
	}
	if got := cols.created.GetVectorsConfig().GetParams().GetSize(); got != 8 {
		t.Errorf("size = %d", got)
	}
	if err := vs.DeleteCollection(context.Background()); err != nil || !cols.deleted {
		t.Fatalf("delete: %v", err)
	}
}

func TestUpsert_DeterministicPointIDs(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "sw-index")
	rec := VectorRecord{ID: "people_1", Embedding: []float32{0.1, 0.2}, Payload: map[string]any{"text": "Name: Luke", "chunk_index": 0}}

	for i := 0; i < 2; i++ {
		if err := vs.Upsert(context.Background(), []VectorRecord{rec}); err != nil {
			t.Fatal(err)
		}
	}
	if len(pts.upserts) != 2 {
		t.Fatalf("expected 2 upsert calls, got %d", len(pts.upserts))
	}
	first := pts.upserts[0].GetPoints()[0]
	second := pts.upserts[1].GetPoints()[0]
	if first.GetId().GetUuid() != second.GetId().GetUuid() {
		t.Fatal("same record id must map to the same point id")
	}
	if first.GetId().GetUuid() != PointID("people_1") {
		t.Errorf("unexpected point id %s", first.GetId().GetUuid())
	}
	if first.GetPayload()[PayloadRecordID].GetStringValue() != "people_1" {
		t.Error("record id missing from payload")
	}
	if first.GetPayload()["chunk_index"].GetIntegerValue() != 0 {
		t.Error("chunk index not stored as integer")
	}
	if !pts.upserts[0].GetWait() {
		t.Error("upsert should wait for the write")
	}
}

func TestUpsert_EmptyAndError(t *testing.T) {
	pts := &mockPoints{upsertErr: errors.New("boom")}
	vs := NewWithClients(pts, &mockCollections{}, "sw-index")
	if err := vs.Upsert(context.Background(), nil); err != nil || len(pts.upserts) != 0 {
		t.Fatal("empty upsert should be a no-op")
	}
	if err := vs.Upsert(context.Background(), []VectorRecord{{ID: "a"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID("planets_1")}},
		Score: 0.91,
		Payload: map[string]*pb.Value{
			PayloadRecordID: toValue("planets_1"),
			"text":          toValue("Name: Tatooine"),
			"chunk_index":   toValue(2),
			"tags":          toValue([]string{"desert"}),
		},
	}}}}
	vs := NewWithClients(pts, &mockCollections{}, "sw-index")

	res, err := vs.Search(context.Background(), []float32{1, 0}, 6, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ID != "planets_1" || res[0].Score != 0.91 {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Payload["text"] != "Name: Tatooine" || res[0].Payload["chunk_index"] != int64(2) {
		t.Errorf("payload = %+v", res[0].Payload)
	}
	if pts.lastSearch.GetLimit() != 6 || pts.lastSearch.ScoreThreshold != nil {
		t.Errorf("unexpected request: %+v", pts.lastSearch)
	}

	if _, err := vs.Search(context.Background(), []float32{1, 0}, 2, 0.7); err != nil {
		t.Fatal(err)
	}
	if pts.lastSearch.GetScoreThreshold() != 0.7 {
		t.Errorf("threshold = %v", pts.lastSearch.GetScoreThreshold())
	}
}

func TestSearch_Error(t *testing.T) {
	vs := NewWithClients(&mockPoints{searchErr: errors.New("down")}, &mockCollections{}, "x")
	if _, err := vs.Search(context.Background(), nil, 1, 0); err == nil {
		t.Fatal("expected error")
	}
}
