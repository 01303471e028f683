package main

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	goredis "github.com/redis/go-redis/v9"
	temporalclient "go.temporal.io/sdk/client"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/careflow-systems/hospital-core/agents"
	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/config"
	"github.com/careflow-systems/hospital-core/discharge"
	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/department"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
	"github.com/careflow-systems/hospital-core/domain/document"
	"github.com/careflow-systems/hospital-core/domain/equipment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/domain/meeting"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/room"
	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/domain/user"
	"github.com/careflow-systems/hospital-core/embedding"
	"github.com/careflow-systems/hospital-core/llm"
	"github.com/careflow-systems/hospital-core/llm/anthropicllm"
	"github.com/careflow-systems/hospital-core/llm/bedrockllm"
	"github.com/careflow-systems/hospital-core/llm/openaillm"
	"github.com/careflow-systems/hospital-core/orchestrator"
	mongostore "github.com/careflow-systems/hospital-core/repos/dischargereport/mongo"
	repoinmem "github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/repos/postgres"
	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/agent/telemetry"
	"github.com/careflow-systems/hospital-core/runtime/engine"
	engineinmem "github.com/careflow-systems/hospital-core/runtime/engine/inmem"
	enginetemporal "github.com/careflow-systems/hospital-core/runtime/engine/temporal"
	sessioninmem "github.com/careflow-systems/hospital-core/runtime/session/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/runtime/tracebuffer"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
	checkpointinmem "github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint/inmem"
	checkpointredis "github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint/redis"
	"github.com/careflow-systems/hospital-core/vectorstore"
	"github.com/careflow-systems/hospital-core/workflows"
)

// repositories bundles every domain/<entity>.Repository the rest of wiring
// needs, so buildRepositories can switch the whole set between repos/inmem
// and repos/postgres behind one call (SPEC_FULL.md §3.1).
type repositories struct {
	patients         patient.Repository
	beds             bed.Repository
	rooms            room.Repository
	departments      department.Repository
	staff            staff.Repository
	staffAssignments staffassignment.Repository
	equipment        equipment.Repository
	equipmentUsages  equipmentusage.Repository
	supplies         inventory.SupplyRepository
	supplyUsages     inventory.UsageRepository
	appointments     appointment.Repository
	documents        document.Repository
	meetings         meeting.Repository
	users            user.Repository
	dischargeReports dischargereport.Repository
}

// buildRepositories wires repos/postgres when cfg.DatabaseURL is set,
// otherwise repos/inmem (spec.md §3.1, SPEC_FULL.md §2.1 default config).
func buildRepositories(ctx context.Context, cfg config.Config) (repositories, func() error, error) {
	closeFn := func() error { return nil }

	if cfg.DatabaseURL == "" {
		repos := repositories{
			patients:         repoinmem.NewPatientRepository(),
			beds:             repoinmem.NewBedRepository(),
			rooms:            repoinmem.NewRoomRepository(),
			departments:      repoinmem.NewDepartmentRepository(),
			staff:            repoinmem.NewStaffRepository(),
			staffAssignments: repoinmem.NewStaffAssignmentRepository(),
			equipment:        repoinmem.NewEquipmentRepository(),
			equipmentUsages:  repoinmem.NewEquipmentUsageRepository(),
			supplies:         repoinmem.NewInventoryRepository(),
			supplyUsages:     repoinmem.NewUsageRepository(),
			appointments:     repoinmem.NewAppointmentRepository(),
			documents:        repoinmem.NewDocumentRepository(),
			meetings:         repoinmem.NewMeetingRepository(),
			users:            repoinmem.NewUserRepository(),
			dischargeReports: repoinmem.NewDischargeReportRepository(),
		}
		repos.dischargeReports = repoinmem.NewDischargeReportRepository()
		if cfg.MongoURI != "" {
			store, closeMongo, err := buildMongoDischargeReports(ctx, cfg)
			if err != nil {
				return repositories{}, closeFn, err
			}
			repos.dischargeReports = store
			closeFn = closeMongo
		}
		return repos, closeFn, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, closeFn, fmt.Errorf("wiring: connect postgres: %w", err)
	}
	closeFn = db.Close
	repos := repositories{
		patients:         postgres.NewPatientRepository(db),
		beds:             postgres.NewBedRepository(db),
		rooms:            postgres.NewRoomRepository(db),
		departments:      postgres.NewDepartmentRepository(db),
		staff:            postgres.NewStaffRepository(db),
		staffAssignments: postgres.NewStaffAssignmentRepository(db),
		equipment:        postgres.NewEquipmentRepository(db),
		equipmentUsages:  postgres.NewEquipmentUsageRepository(db),
		supplies:         postgres.NewInventoryRepository(db),
		supplyUsages:     postgres.NewUsageRepository(db),
		appointments:     postgres.NewAppointmentRepository(db),
		documents:        repoinmem.NewDocumentRepository(),
		meetings:         repoinmem.NewMeetingRepository(),
		users:            postgres.NewUserRepository(db),
		dischargeReports: repoinmem.NewDischargeReportRepository(),
	}
	if cfg.MongoURI != "" {
		store, closeMongo, err := buildMongoDischargeReports(ctx, cfg)
		if err != nil {
			db.Close()
			return repositories{}, closeFn, err
		}
		repos.dischargeReports = store
		prevClose := closeFn
		closeFn = func() error {
			err1 := closeMongo()
			err2 := prevClose()
			if err1 != nil {
				return err1
			}
			return err2
		}
	}
	return repos, closeFn, nil
}

// buildMongoDischargeReports connects to MongoDB for durable DischargeReport
// storage (spec.md §9 Open Question 3, resolved in DESIGN.md: the one entity
// durable storage must survive a restart for).
func buildMongoDischargeReports(ctx context.Context, cfg config.Config) (dischargereport.Repository, func() error, error) {
	client, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("wiring: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("wiring: ping mongo: %w", err)
	}
	store, err := mongostore.New(ctx, mongostore.Options{
		Client:     client,
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("wiring: build discharge report store: %w", err)
	}
	return store, func() error { return client.Disconnect(context.Background()) }, nil
}

// registerAgents registers every Domain Agent (spec.md §4.5) into reg. It
// seeds the PatientAgent's patient_code counter from the count of existing
// patients, as NewPatientAgent's doc comment describes.
func registerAgents(ctx context.Context, reg *toolregistry.Registry, repos repositories, bedMgr *bedlifecycle.Manager, dischargeAgg *discharge.Aggregator, clinical *agents.ClinicalAgent, traces *tracebuffer.Buffer) error {
	existing, err := repos.patients.List(ctx, "", domain.Page{})
	if err != nil {
		return fmt.Errorf("wiring: count existing patients: %w", err)
	}

	registrars := []interface{ Register(*toolregistry.Registry) error }{
		agents.NewPatientAgent(repos.patients, repos.staffAssignments, repos.equipmentUsages, repos.supplyUsages, repos.appointments, uint64(len(existing))),
		agents.NewBedAgent(repos.beds, bedMgr),
		agents.NewDischargeAgent(repos.beds, dischargeAgg),
		agents.NewDepartmentAgent(repos.departments, repos.rooms),
		agents.NewStaffAgent(repos.staff, repos.staffAssignments),
		agents.NewEquipmentAgent(repos.equipment, repos.equipmentUsages),
		agents.NewInventoryAgent(repos.supplies),
		agents.NewAppointmentAgent(repos.appointments),
		agents.NewDocumentAgent(repos.documents),
		agents.NewMeetingAgent(repos.meetings),
		agents.NewUserAgent(repos.users),
		agents.NewSystemAgent(traces),
	}
	for _, r := range registrars {
		if err := r.Register(reg); err != nil {
			return fmt.Errorf("wiring: register agent: %w", err)
		}
	}
	if clinical != nil {
		if err := clinical.Register(reg); err != nil {
			return fmt.Errorf("wiring: register clinical agent: %w", err)
		}
	}
	return nil
}

// buildCheckpointStore wires the Workflow Engine's checkpoint.Store backend
// (SPEC_FULL.md §4.8): redis/go-redis/v9 when cfg.RedisAddr is set, the
// in-memory reference store otherwise.
func buildCheckpointStore(cfg config.Config) checkpoint.Store {
	if cfg.RedisAddr == "" {
		return checkpointinmem.New()
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	return checkpointredis.New(rdb)
}

// buildEngine wires the underlying runtime/engine.Engine backend (inmem or
// temporal, SPEC_FULL.md §2.1's WORKFLOW_ENGINE toggle).
func buildEngine(cfg config.Config, logger telemetry.Logger, metrics telemetry.Metrics) (engine.Engine, func() error, error) {
	if cfg.WorkflowEngine == "temporal" {
		opts := enginetemporal.Options{}
		if cfg.TemporalHostPort != "" || cfg.TemporalNamespace != "" {
			opts.ClientOptions = &temporalclient.Options{
				HostPort:  cfg.TemporalHostPort,
				Namespace: cfg.TemporalNamespace,
			}
		}
		eng, err := enginetemporal.New(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("wiring: build temporal engine: %w", err)
		}
		return eng, eng.Close, nil
	}
	eng := engineinmem.New(engineinmem.Options{Logger: logger, Metrics: metrics})
	return eng, func() error { return nil }, nil
}

// buildWorkflowEngine compiles and registers the three graphs spec.md §4.4
// names on top of eng, returning the generalized runtime/workflow.Engine
// callers dispatch workflow-coupled tool calls through.
func buildWorkflowEngine(ctx context.Context, eng engine.Engine, reg *toolregistry.Registry, cfg config.Config) (*workflow.Engine, error) {
	store := buildCheckpointStore(cfg)
	we, err := workflow.New(eng, store, workflow.Options{NodeRetryMax: cfg.WorkflowNodeRetryMax})
	if err != nil {
		return nil, fmt.Errorf("wiring: build workflow engine: %w", err)
	}
	if err := workflows.RegisterActivities(ctx, eng, reg); err != nil {
		return nil, fmt.Errorf("wiring: register workflow activities: %w", err)
	}
	if err := workflow.RegisterGraph(ctx, we, workflows.BuildAdmissionGraph(workflows.AdmissionOptions{})); err != nil {
		return nil, fmt.Errorf("wiring: register admission graph: %w", err)
	}
	if err := workflow.RegisterGraph(ctx, we, workflows.BuildClinicalDecisionGraph()); err != nil {
		return nil, fmt.Errorf("wiring: register clinical decision graph: %w", err)
	}
	if err := workflow.RegisterGraph(ctx, we, workflows.BuildDocumentProcessingGraph()); err != nil {
		return nil, fmt.Errorf("wiring: register document processing graph: %w", err)
	}
	return we, nil
}

// buildLLMRouter wires llm.Router over every configured provider
// (SPEC_FULL.md §4.8): anthropic and openai construct directly from an API
// key, bedrock from the AWS SDK's default credential chain. A provider
// named in cfg.LLMProviderOrder with no credentials configured is skipped
// rather than failing startup, since an operator may intentionally run
// with a single provider.
func buildLLMRouter(cfg config.Config) (*llm.Router, error) {
	providers := make(map[string]model.Client)

	if cfg.AnthropicAPIKey != "" {
		c, err := anthropicllm.NewFromAPIKey(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			return nil, fmt.Errorf("wiring: build anthropic client: %w", err)
		}
		providers["anthropic"] = c
	}
	if cfg.OpenAIAPIKey != "" {
		c, err := openaillm.NewFromAPIKey(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("wiring: build openai client: %w", err)
		}
		providers["openai"] = c
	}
	if cfg.BedrockRegion != "" && cfg.BedrockDefaultModel != "" {
		c, err := buildBedrockClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("wiring: build bedrock client: %w", err)
		}
		providers["bedrock"] = c
	}

	order := make([]string, 0, len(cfg.LLMProviderOrder))
	for _, name := range cfg.LLMProviderOrder {
		if _, ok := providers[name]; ok {
			order = append(order, name)
		}
	}
	return llm.NewRouter(providers, order)
}

// buildEmbeddingAndKnowledge wires the Clinical AI agent's embedding and
// vector store capability (SPEC_FULL.md §4.8). Returns nil, nil when
// cfg.MilvusAddr is empty: a Clinical agent is only registered once both
// are available, rather than against a store that cannot connect.
func buildEmbeddingAndKnowledge(ctx context.Context, cfg config.Config) (embedding.Provider, vectorstore.Store, error) {
	if cfg.MilvusAddr == "" {
		return nil, nil, nil
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("wiring: milvus_addr is configured but openai_api_key is not, cannot build embeddings")
	}
	embedder, err := embedding.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return nil, nil, fmt.Errorf("wiring: build embedding provider: %w", err)
	}
	store, err := buildVectorStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return embedder, store, nil
}

// buildVectorStore connects to the configured Milvus instance and ensures
// the knowledge collection exists (vectorstore.New's own responsibility).
func buildVectorStore(ctx context.Context, cfg config.Config) (vectorstore.Store, error) {
	client, err := milvusclient.NewClient(ctx, milvusclient.Config{Address: cfg.MilvusAddr})
	if err != nil {
		return nil, fmt.Errorf("wiring: connect milvus: %w", err)
	}
	store, err := vectorstore.New(ctx, vectorstore.Options{
		Client:     client,
		Collection: cfg.MilvusCollection,
		Dimension:  cfg.EmbeddingDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("wiring: build vector store: %w", err)
	}
	return store, nil
}

// buildBedrockClient wires the Bedrock fallback LLM provider (SPEC_FULL.md
// §4.8) from the AWS SDK's default credential chain. It carries no
// transcript ledger of its own: the Orchestrator reconstructs the
// conversation window itself rather than relying on a provider-side replay
// source (see orchestrator.go's doc comment on why the chat loop is a plain
// synchronous handler rather than a durable workflow).
func buildBedrockClient(cfg config.Config) (*bedrockllm.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.BedrockRegion))
	if err != nil {
		return nil, fmt.Errorf("wiring: load aws config: %w", err)
	}
	runtime := bedrockruntime.NewFromConfig(awsCfg)
	return bedrockllm.New(runtime, bedrockllm.Options{DefaultModel: cfg.BedrockDefaultModel}, nil)
}

func buildSessionStore(cfg config.Config) *sessioninmem.Store {
	return sessioninmem.New(cfg.SessionLRUCapacity)
}

// buildTraceBuffer constructs the registry-wide trace/audit trail
// (SPEC_FULL.md §10). The returned buffer must be passed to
// toolregistry.New via toolregistry.WithTraceObserver before any tool is
// registered, so every dispatched call is captured from the start.
func buildTraceBuffer() *tracebuffer.Buffer {
	return tracebuffer.New(tracebuffer.DefaultCapacity)
}

func buildOrchestrator(reg *toolregistry.Registry, router *llm.Router, sessions *sessioninmem.Store, bedMgr *bedlifecycle.Manager, cfg config.Config, logger telemetry.Logger, metrics telemetry.Metrics) *orchestrator.Orchestrator {
	return orchestrator.New(reg, router, sessions, orchestrator.Options{
		MaxToolRounds:          cfg.OrchestratorMaxToolRounds,
		ConversationWindowSize: cfg.ConversationWindowSize,
		TurnTimeout:            time.Duration(cfg.ChatTurnTimeoutMS) * time.Millisecond,
		BedManager:             bedMgr,
		Logger:                 logger,
		Metrics:                metrics,
	})
}

func buildDischargeAggregator(repos repositories, bedMgr *bedlifecycle.Manager) *discharge.Aggregator {
	return discharge.New(
		repos.dischargeReports,
		repos.staffAssignments,
		repos.equipmentUsages,
		repos.supplyUsages,
		repos.appointments,
		repos.patients,
		repos.beds,
		bedMgr,
	)
}
