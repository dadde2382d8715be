package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/taskforce/internal/domain/model"
	"github.com/okian/taskforce/pkg/metrics"
)

const (
	defaultDatabase         = "taskforce"
	defaultOperationTimeout = 5 * time.Second

	eventsCollection  = "events"
	membersCollection = "members"
	tasksCollection   = "tasks"
)

var _ Store = (*MongoStore)(nil)

// MongoStore keeps events, members and tasks in MongoDB collections.
type MongoStore struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
	now      func() time.Time

	events  *mongo.Collection
	members *mongo.Collection
	tasks   *mongo.Collection
}

// NewMongoStore connects to uri, verifies the connection and ensures indexes.
func NewMongoStore(ctx context.Context, uri string, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		database: defaultDatabase,
		timeout:  defaultOperationTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrUnavailable, err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	db := client.Database(s.database)
	s.client = client
	s.events = db.Collection(eventsCollection)
	s.members = db.Collection(membersCollection)
	s.tasks = db.Collection(tasksCollection)

	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("members index: %w", err)
	}
	if _, err := s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "assignment.member_id", Value: 1}, {Key: "completed", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("tasks index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalid)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.events.InsertOne(ctx, ev); err != nil {
		return mapWriteError("event", ev.ID, err)
	}
	return nil
}

func (s *MongoStore) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var ev model.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("%w: get event: %w", ErrUnavailable, err)
	}
	return ev, nil
}

func (s *MongoStore) UpsertMember(ctx context.Context, m model.Member) error {
	m = m.Normalize()
	if m.ID == "" {
		return fmt.Errorf("%w: member id is required", ErrInvalid)
	}
	if _, err := s.GetEvent(ctx, m.EventID); err != nil {
		return err
	}
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = s.now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	// A member of another event matches nothing, so the upsert collides on _id.
	_, err := s.members.UpdateOne(ctx,
		bson.M{"_id": m.ID, "event_id": m.EventID},
		bson.M{
			"$set":         bson.M{"team_id": m.TeamID, "name": m.Name, "skills": m.Skills},
			"$setOnInsert": bson.M{"joined_at": joined},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return mapWriteError("member", m.ID, err)
	}
	return nil
}

func (s *MongoStore) ListMembers(ctx context.Context, eventID string) ([]model.Member, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.findMembers(ctx, eventID)
}

func (s *MongoStore) findMembers(ctx context.Context, eventID string) ([]model.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cursor, err := s.members.Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find members: %w", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	out := []model.Member{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode members: %w", ErrUnavailable, err)
	}
	return out, nil
}

func (s *MongoStore) CreateTask(ctx context.Context, t model.Task) error {
	t = t.Normalize()
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	if _, err := s.GetEvent(ctx, t.EventID); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return mapWriteError("task", t.ID, err)
	}
	return nil
}

func (s *MongoStore) ListTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.findTasks(ctx, bson.M{"event_id": eventID})
}

func (s *MongoStore) findTasks(ctx context.Context, filter bson.M) ([]model.Task, error) {
	return readTasks(ctx, s.tasks, filter, s.timeout)
}

// taskCollection is the slice of *mongo.Collection the task commit path uses.
type taskCollection interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

func readTasks(ctx context.Context, coll taskCollection, filter bson.M, timeout time.Duration) ([]model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cursor, err := coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find tasks: %w", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	out := []model.Task{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode tasks: %w", ErrUnavailable, err)
	}
	return out, nil
}

func (s *MongoStore) CompleteTask(ctx context.Context, eventID, taskID string) (model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var t model.Task
	err := s.tasks.FindOneAndUpdate(ctx,
		bson.M{"_id": taskID, "event_id": eventID},
		bson.M{"$set": bson.M{"completed": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("%w: complete task: %w", ErrUnavailable, err)
	}
	return t, nil
}

// FetchUnassignedTasks implements allocation.Gateway.
func (s *MongoStore) FetchUnassignedTasks(ctx context.Context, eventID string) ([]model.Task, error) {
	start := time.Now()
	defer observe("fetch_tasks", start)
	// nil matches both a null and a missing assignment.
	return s.findTasks(ctx, bson.M{"event_id": eventID, "completed": false, "assignment": nil})
}

// FetchRoster implements allocation.Gateway.
func (s *MongoStore) FetchRoster(ctx context.Context, eventID string) ([]model.Member, error) {
	start := time.Now()
	defer observe("fetch_roster", start)
	return s.findMembers(ctx, eventID)
}

// workloadPipeline groups open assigned tasks by assignee.
func workloadPipeline(memberIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"completed":            false,
			"assignment.member_id": bson.M{"$in": memberIDs},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$assignment.member_id",
			"open": bson.M{"$sum": 1},
			"high": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$priority", string(model.PriorityHigh)}}, 1, 0,
			}}},
		}}},
	}
}

// FetchOpenWorkload implements allocation.Gateway.
func (s *MongoStore) FetchOpenWorkload(ctx context.Context, memberIDs []string) (map[string]model.WorkloadSnapshot, error) {
	start := time.Now()
	defer observe("fetch_workload", start)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cursor, err := s.tasks.Aggregate(ctx, workloadPipeline(memberIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate workload: %w", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var rows []model.WorkloadSnapshot
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode workload: %w", ErrUnavailable, err)
	}
	return fillWorkload(memberIDs, rows), nil
}

func fillWorkload(memberIDs []string, rows []model.WorkloadSnapshot) map[string]model.WorkloadSnapshot {
	out := make(map[string]model.WorkloadSnapshot, len(memberIDs))
	for _, id := range memberIDs {
		out[id] = model.WorkloadSnapshot{MemberID: id}
	}
	for _, r := range rows {
		if _, ok := out[r.MemberID]; ok {
			out[r.MemberID] = r
		}
	}
	return out
}

// commitModels builds one conditional update per assignment. The filter only
// matches a task that is still open and unassigned.
func commitModels(batch []model.Assignment) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, len(batch))
	for i, a := range batch {
		writes[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": a.TaskID, "completed": false, "assignment": nil}).
			SetUpdate(bson.M{"$set": bson.M{"assignment": a}})
	}
	return writes
}

// CommitAssignments implements allocation.Gateway. The batch goes out as one
// unordered bulk write; outcomes come from re-reading the touched tasks.
func (s *MongoStore) CommitAssignments(ctx context.Context, batch []model.Assignment) ([]model.CommitOutcome, error) {
	start := time.Now()
	defer observe("commit", start)
	if len(batch) == 0 {
		return []model.CommitOutcome{}, nil
	}
	return commitBatch(ctx, s.tasks, batch, s.timeout)
}

// commitBatch writes batch and reads the tasks back. A failed or timed out
// bulk write may still have applied some updates, so the read always runs on
// its own deadline and only a failed read fails the whole batch.
func commitBatch(ctx context.Context, coll taskCollection, batch []model.Assignment, timeout time.Duration) ([]model.CommitOutcome, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	writeErrs := map[int]error{}
	if _, err := coll.BulkWrite(wctx, commitModels(batch), options.BulkWrite().SetOrdered(false)); err != nil {
		metrics.RecordErrorByComponent("repository", "bulk_write")
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			for _, we := range bwe.WriteErrors {
				writeErrs[we.Index] = fmt.Errorf("%w: %s", ErrUnavailable, we.Message)
			}
		}
	}

	ids := make([]string, len(batch))
	for i, a := range batch {
		ids[i] = a.TaskID
	}
	stored, err := readTasks(context.WithoutCancel(ctx), coll, bson.M{"_id": bson.M{"$in": ids}}, timeout)
	if err != nil {
		return nil, fmt.Errorf("verify commit: %w", err)
	}
	byID := make(map[string]model.Task, len(stored))
	for _, t := range stored {
		byID[t.ID] = t
	}
	return reconcile(batch, byID, writeErrs), nil
}

// reconcile decides each assignment's outcome from the tasks as stored after
// the write. An assignment succeeded only if the stored assignment is its own.
func reconcile(batch []model.Assignment, stored map[string]model.Task, writeErrs map[int]error) []model.CommitOutcome {
	out := make([]model.CommitOutcome, len(batch))
	for i, a := range batch {
		o := model.CommitOutcome{TaskID: a.TaskID, MemberID: a.MemberID}
		t, ok := stored[a.TaskID]
		switch {
		case writeErrs[i] != nil:
			o.Err = writeErrs[i]
		case !ok:
			o.Err = fmt.Errorf("task %s: %w", a.TaskID, ErrNotFound)
		case t.Assignment != nil && t.Assignment.ID == a.ID:
		case t.Assignment != nil:
			o.Err = fmt.Errorf("task %s: %w", a.TaskID, ErrAlreadyAssigned)
		case t.Completed:
			o.Err = fmt.Errorf("task %s: %w", a.TaskID, ErrTaskCompleted)
		default:
			o.Err = fmt.Errorf("task %s: %w: write not applied", a.TaskID, ErrUnavailable)
		}
		out[i] = o
	}
	return out
}

func mapWriteError(kind, id string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrConflict)
	}
	metrics.RecordErrorByComponent("repository", "write_failed")
	return fmt.Errorf("%w: write %s: %w", ErrUnavailable, kind, err)
}
