package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Curator    CuratorConfig    `mapstructure:"curator"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Neo4jConfig is optional: when URL is empty the similarity engine uses the
// in-memory scan instead of the graph-backed finder.
type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		UserInteractions string `mapstructure:"user_interactions"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig bundles every tunable of the ranking engine so tests and
// deployments can adjust weights without recompilation.
type EngineConfig struct {
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Cascade    CascadeConfig    `mapstructure:"cascade"`
	Diversity  DiversityConfig  `mapstructure:"diversity"`
}

type ScoringConfig struct {
	CategoryBaseline      float64 `mapstructure:"category_baseline"`
	CategoryIntensityStep float64 `mapstructure:"category_intensity_step"`
	CategoryMax           float64 `mapstructure:"category_max"`
	CategoryMin           float64 `mapstructure:"category_min"`
	PlaceTimeScore        float64 `mapstructure:"place_time_score"`
	TimeSoonestScore      float64 `mapstructure:"time_soonest_score"`
	TimeSoonScore         float64 `mapstructure:"time_soon_score"`
	TimeThisWeekScore     float64 `mapstructure:"time_this_week_score"`
	TimeNextWeekScore     float64 `mapstructure:"time_next_week_score"`
	TimeLaterScore        float64 `mapstructure:"time_later_score"`
	FreePriceScore        float64 `mapstructure:"free_price_score"`
	CheapPriceScore       float64 `mapstructure:"cheap_price_score"`
	ModeratePriceScore    float64 `mapstructure:"moderate_price_score"`
	HighPriceScore        float64 `mapstructure:"high_price_score"`
	PremiumPriceScore     float64 `mapstructure:"premium_price_score"`
	DefaultPriceScore     float64 `mapstructure:"default_price_score"`
	RelationshipBonus     float64 `mapstructure:"relationship_bonus"`
	FeedbackCategoryStep  float64 `mapstructure:"feedback_category_step"`
	FeedbackVenueStep     float64 `mapstructure:"feedback_venue_step"`
	FeedbackCap           float64 `mapstructure:"feedback_cap"`
	ConstraintDayBonus    float64 `mapstructure:"constraint_day_bonus"`
	ConstraintTimeBonus   float64 `mapstructure:"constraint_time_bonus"`
	ConstraintHoodBonus   float64 `mapstructure:"constraint_hood_bonus"`
	BudgetPenalty         float64 `mapstructure:"budget_penalty"`
	BudgetFitBonus        float64 `mapstructure:"budget_fit_bonus"`
	BudgetExceedPenalty   float64 `mapstructure:"budget_exceed_penalty"`
	SocialIntentBonus     float64 `mapstructure:"social_intent_bonus"`
	SocialEitherBonus     float64 `mapstructure:"social_either_bonus"`
	SeenThreshold         int     `mapstructure:"seen_threshold"`
	SeenPenaltyStep       float64 `mapstructure:"seen_penalty_step"`
	SeenPenaltyCap        float64 `mapstructure:"seen_penalty_cap"`
	TrendingSetBonus      float64 `mapstructure:"trending_set_bonus"`
	HighSaveBonus         float64 `mapstructure:"high_save_bonus"`
	ModerateSaveBonus     float64 `mapstructure:"moderate_save_bonus"`
	HighSaveCount         int     `mapstructure:"high_save_count"`
	ModerateSaveCount     int     `mapstructure:"moderate_save_count"`
	DetailMax             float64 `mapstructure:"detail_max"`
	DetailIntensityStep   float64 `mapstructure:"detail_intensity_step"`
	SoberMaxBonus         float64 `mapstructure:"sober_max_bonus"`
	SoberTagBonus         float64 `mapstructure:"sober_tag_bonus"`
	AvoidBarsPenalty      float64 `mapstructure:"avoid_bars_penalty"`
	DogBonus              float64 `mapstructure:"dog_bonus"`
	DogOnlyPenalty        float64 `mapstructure:"dog_only_penalty"`
	HiddenScore           float64 `mapstructure:"hidden_score"`
	FilterCutoff          float64 `mapstructure:"filter_cutoff"`
}

type SimilarityConfig struct {
	ItemWeight     float64 `mapstructure:"item_weight"`
	CategoryWeight float64 `mapstructure:"category_weight"`
	MinSimilarity  float64 `mapstructure:"min_similarity"`
	MaxUsers       int     `mapstructure:"max_users"`
	UseGraph       bool    `mapstructure:"use_graph"`
}

type CascadeConfig struct {
	DoneWeight        float64 `mapstructure:"done_weight"`
	WantWeight        float64 `mapstructure:"want_weight"`
	TopCategories     int     `mapstructure:"top_categories"`
	RecencyMaxBonus   float64 `mapstructure:"recency_max_bonus"`
	PlaceFlatBonus    float64 `mapstructure:"place_flat_bonus"`
	CandidatePoolSize int     `mapstructure:"candidate_pool_size"`
}

type DiversityConfig struct {
	HeadSize               int     `mapstructure:"head_size"`
	CategoryCap            int     `mapstructure:"category_cap"`
	VenueCap               int     `mapstructure:"venue_cap"`
	ExplorationProbability float64 `mapstructure:"exploration_probability"`
	InsertWindow           int     `mapstructure:"insert_window"`
}

type CuratorConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Model              string        `mapstructure:"model"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxCandidates      int           `mapstructure:"max_candidates"`
	WeeklyPickCount    int           `mapstructure:"weekly_pick_count"`
	MonthlyPickCount   int           `mapstructure:"monthly_pick_count"`
	MinViableWeekly    int           `mapstructure:"min_viable_weekly"`
	MinViableMonthly   int           `mapstructure:"min_viable_monthly"`
	MonthlyCategoryCap int           `mapstructure:"monthly_category_cap"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.hot.max_retries", 3)
	viper.SetDefault("redis.hot.pool_size", 10)
	viper.SetDefault("redis.hot.timeout", "5s")
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.topics.user_interactions", "user-interactions")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.default", 1000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Scoring defaults
	viper.SetDefault("engine.scoring.category_baseline", 10.0)
	viper.SetDefault("engine.scoring.category_intensity_step", 4.0)
	viper.SetDefault("engine.scoring.category_max", 30.0)
	viper.SetDefault("engine.scoring.category_min", -10.0)
	viper.SetDefault("engine.scoring.place_time_score", 8.0)
	viper.SetDefault("engine.scoring.time_soonest_score", 25.0)
	viper.SetDefault("engine.scoring.time_soon_score", 20.0)
	viper.SetDefault("engine.scoring.time_this_week_score", 15.0)
	viper.SetDefault("engine.scoring.time_next_week_score", 10.0)
	viper.SetDefault("engine.scoring.time_later_score", 5.0)
	viper.SetDefault("engine.scoring.free_price_score", 15.0)
	viper.SetDefault("engine.scoring.cheap_price_score", 12.0)
	viper.SetDefault("engine.scoring.moderate_price_score", 8.0)
	viper.SetDefault("engine.scoring.high_price_score", 4.0)
	viper.SetDefault("engine.scoring.premium_price_score", 0.0)
	viper.SetDefault("engine.scoring.default_price_score", 8.0)
	viper.SetDefault("engine.scoring.relationship_bonus", 8.0)
	viper.SetDefault("engine.scoring.feedback_category_step", 4.0)
	viper.SetDefault("engine.scoring.feedback_venue_step", 3.0)
	viper.SetDefault("engine.scoring.feedback_cap", 15.0)
	viper.SetDefault("engine.scoring.constraint_day_bonus", 6.0)
	viper.SetDefault("engine.scoring.constraint_time_bonus", 6.0)
	viper.SetDefault("engine.scoring.constraint_hood_bonus", 8.0)
	viper.SetDefault("engine.scoring.budget_penalty", -50.0)
	viper.SetDefault("engine.scoring.budget_fit_bonus", 4.0)
	viper.SetDefault("engine.scoring.budget_exceed_penalty", -6.0)
	viper.SetDefault("engine.scoring.social_intent_bonus", 6.0)
	viper.SetDefault("engine.scoring.social_either_bonus", 2.0)
	viper.SetDefault("engine.scoring.seen_threshold", 3)
	viper.SetDefault("engine.scoring.seen_penalty_step", 3.0)
	viper.SetDefault("engine.scoring.seen_penalty_cap", 15.0)
	viper.SetDefault("engine.scoring.trending_set_bonus", 12.0)
	viper.SetDefault("engine.scoring.high_save_bonus", 8.0)
	viper.SetDefault("engine.scoring.moderate_save_bonus", 4.0)
	viper.SetDefault("engine.scoring.high_save_count", 50)
	viper.SetDefault("engine.scoring.moderate_save_count", 20)
	viper.SetDefault("engine.scoring.detail_max", 8.0)
	viper.SetDefault("engine.scoring.detail_intensity_step", 1.5)
	viper.SetDefault("engine.scoring.sober_max_bonus", 10.0)
	viper.SetDefault("engine.scoring.sober_tag_bonus", 5.0)
	viper.SetDefault("engine.scoring.avoid_bars_penalty", -10.0)
	viper.SetDefault("engine.scoring.dog_bonus", 6.0)
	viper.SetDefault("engine.scoring.dog_only_penalty", -10.0)
	viper.SetDefault("engine.scoring.hidden_score", -1000.0)
	viper.SetDefault("engine.scoring.filter_cutoff", -100.0)

	// Similarity defaults
	viper.SetDefault("engine.similarity.item_weight", 0.65)
	viper.SetDefault("engine.similarity.category_weight", 0.35)
	viper.SetDefault("engine.similarity.min_similarity", 0.1)
	viper.SetDefault("engine.similarity.max_users", 20)
	viper.SetDefault("engine.similarity.use_graph", false)

	// Cascade defaults
	viper.SetDefault("engine.cascade.done_weight", 1.0)
	viper.SetDefault("engine.cascade.want_weight", 0.6)
	viper.SetDefault("engine.cascade.top_categories", 3)
	viper.SetDefault("engine.cascade.recency_max_bonus", 10.0)
	viper.SetDefault("engine.cascade.place_flat_bonus", 5.0)
	viper.SetDefault("engine.cascade.candidate_pool_size", 200)

	// Diversity defaults
	viper.SetDefault("engine.diversity.head_size", 20)
	viper.SetDefault("engine.diversity.category_cap", 3)
	viper.SetDefault("engine.diversity.venue_cap", 2)
	viper.SetDefault("engine.diversity.exploration_probability", 0.3)
	viper.SetDefault("engine.diversity.insert_window", 5)

	// Curator defaults
	viper.SetDefault("curator.enabled", false)
	viper.SetDefault("curator.model", "gpt-4o-mini")
	viper.SetDefault("curator.timeout", "20s")
	viper.SetDefault("curator.max_candidates", 60)
	viper.SetDefault("curator.weekly_pick_count", 5)
	viper.SetDefault("curator.monthly_pick_count", 10)
	viper.SetDefault("curator.min_viable_weekly", 2)
	viper.SetDefault("curator.min_viable_monthly", 4)
	viper.SetDefault("curator.monthly_category_cap", 2)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
