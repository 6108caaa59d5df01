package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/events"
	"github.com/Listd-Technologies/listd-prd/internal/models"
)

// Task types.
const (
	TypeMessageNotify    = "message:notify"
	TypeValuationPersist = "valuation:persist"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Enqueuers (API-side producers) ---

// AsyncMessagePublisher is an events.Publisher that defers delivery to
// the background worker instead of publishing inline. The API process
// uses it so a slow transport never sits on the message write path.
type AsyncMessagePublisher struct {
	client *asynq.Client
}

func NewAsyncMessagePublisher(client *asynq.Client) *AsyncMessagePublisher {
	return &AsyncMessagePublisher{client: client}
}

func (p *AsyncMessagePublisher) PublishMessageCreated(ctx context.Context, evt events.MessageCreated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal message notify payload: %w", err)
	}
	_, err = p.client.EnqueueContext(ctx, asynq.NewTask(TypeMessageNotify, payload), asynq.Queue("default"))
	return err
}

// ValuationRetryEnqueuer hands failed valuation snapshot writes to the
// background worker for durable retry.
type ValuationRetryEnqueuer struct {
	client *asynq.Client
}

func NewValuationRetryEnqueuer(client *asynq.Client) *ValuationRetryEnqueuer {
	return &ValuationRetryEnqueuer{client: client}
}

func (e *ValuationRetryEnqueuer) EnqueueValuationPersist(ctx context.Context, valuation *models.PropertyValuation) error {
	payload, err := json.Marshal(valuation)
	if err != nil {
		return fmt.Errorf("failed to marshal valuation persist payload: %w", err)
	}
	_, err = e.client.EnqueueContext(ctx, asynq.NewTask(TypeValuationPersist, payload), asynq.Queue("critical"))
	return err
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds the
// dependencies the task handlers need.
type TaskProcessor struct {
	cfg       *config.Config
	db        *mongo.Database
	publisher events.Publisher
}

func NewTaskProcessor(cfg *config.Config, database *mongo.Database, publisher events.Publisher) *TaskProcessor {
	return &TaskProcessor{cfg: cfg, db: database, publisher: publisher}
}

// SetupServer configures an Asynq server and mux for the background
// worker mode. The caller starts it with srv.Run(mux) and stops it with
// srv.Shutdown().
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMessageNotify, processor.HandleMessageNotifyTask)
	mux.HandleFunc(TypeValuationPersist, processor.HandleValuationPersistTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// HandleMessageNotifyTask fans a persisted message out to the realtime
// transport.
func (p *TaskProcessor) HandleMessageNotifyTask(ctx context.Context, t *asynq.Task) error {
	var evt events.MessageCreated
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("failed to unmarshal message notify payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.publisher.PublishMessageCreated(ctx, evt); err != nil {
		// Transport hiccup; let asynq retry with backoff.
		return fmt.Errorf("failed to publish message %s: %w", evt.ConversationID.Hex(), err)
	}
	return nil
}

// HandleValuationPersistTask retries a valuation snapshot write that
// failed inline. The snapshot keeps the id assigned at request time, so
// a replay after a partial success hits the _id index and is dropped.
func (p *TaskProcessor) HandleValuationPersistTask(ctx context.Context, t *asynq.Task) error {
	var valuation models.PropertyValuation
	if err := json.Unmarshal(t.Payload(), &valuation); err != nil {
		return fmt.Errorf("failed to unmarshal valuation persist payload: %v: %w", err, asynq.SkipRetry)
	}
	if valuation.ID.IsZero() {
		return fmt.Errorf("valuation persist payload has no id: %w", asynq.SkipRetry)
	}

	_, err := p.db.Collection(db.ValuationsCollection).InsertOne(ctx, &valuation)
	if db.IsMongoDuplicateKeyError(err) {
		log.Printf("Valuation %s already persisted, dropping retry.", valuation.ID.Hex())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to persist valuation %s: %w", valuation.ID.Hex(), err)
	}

	log.Printf("Valuation %s persisted by retry worker.", valuation.ID.Hex())
	return nil
}
