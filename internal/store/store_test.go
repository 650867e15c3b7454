package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/chatcut/chatcut/internal/action"
)

func TestJobFromResult(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ok := JobFromResult("j1", "track the runner", []string{"/a.mp4"}, action.Result{Message: "done", OutputPath: "/out/a.mp4", TaskID: "t1"}, now)
	if ok.Status != StatusCompleted || ok.OutputPath != "/out/a.mp4" || ok.TaskID != "t1" || ok.CreatedAt != now.Unix() {
		t.Errorf("completed job = %+v", ok)
	}
	failed := JobFromResult("j2", "p", nil, action.Failure(action.CodeFileNotFound, "missing"), now)
	if failed.Status != StatusFailed || failed.Error != action.CodeFileNotFound {
		t.Errorf("failed job = %+v", failed)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	if j, err := m.GetJob(ctx, "missing"); j != nil || err != nil {
		t.Fatalf("GetJob(missing) = %v, %v", j, err)
	}

	old := &Job{ID: "old", Status: StatusCompleted, CreatedAt: now.Add(-JobTTL - time.Minute).Unix()}
	if err := m.PutJob(ctx, old); err != nil {
		t.Fatal(err)
	}
	job := &Job{ID: "j1", Status: StatusCompleted, Files: []string{"a"}, CreatedAt: now.Unix()}
	if err := m.PutJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Files[0] = "mutated"

	got, err := m.GetJob(ctx, "j1")
	if err != nil || got == nil {
		t.Fatalf("GetJob = %v, %v", got, err)
	}
	if got.Files[0] != "a" {
		t.Errorf("stored job aliases caller slice: %v", got.Files)
	}
	if j, _ := m.GetJob(ctx, "old"); j != nil {
		t.Error("expired job was not dropped")
	}
}

type fakeDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func key(k map[string]types.AttributeValue) string {
	return k["PK"].(*types.AttributeValueMemberS).Value + "|" + k["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[key(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[key(in.Key)]}, nil
}

func TestDynamoStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	s := NewDynamoStore(fake, "jobs")

	job := &Job{ID: "j1", Status: StatusFailed, Prompt: "p", Error: action.CodeJobFailed, CreatedAt: 1700000000}
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	item := fake.items["JOB#j1|META"]
	if item == nil {
		t.Fatalf("item not written under JOB#j1/META: %v", fake.items)
	}
	ttl := item["expiresAt"].(*types.AttributeValueMemberN).Value
	if ttl != "1700086400" {
		t.Errorf("expiresAt = %s", ttl)
	}
	if _, ok := item["ID"]; ok {
		t.Error("ID should not be stored as an attribute")
	}

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "j1" || got.Error != action.CodeJobFailed || got.Prompt != "p" {
		t.Errorf("GetJob = %+v", got)
	}
	if j, err := s.GetJob(ctx, "nope"); j != nil || err != nil {
		t.Errorf("GetJob(nope) = %v, %v", j, err)
	}
}

func TestDynamoStorePutError(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, putErr: errors.New("throttled")}
	err := NewDynamoStore(fake, "jobs").PutJob(context.Background(), &Job{ID: "j1"})
	if err == nil || !errors.Is(err, fake.putErr) {
		t.Errorf("err = %v", err)
	}
}
