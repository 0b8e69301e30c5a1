package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc 与 os.LookupEnv 签名一致，测试时可以替换。
type LookupFunc func(key string) (string, bool)

// ApplyEnv 用环境变量覆盖配置。空字符串视为未设置。
func (c *AppConfig) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("OPENAI_API_KEY"); ok {
		c.LLM.APIKey = v
		c.Embedding.APIKey = v
	}
	if v, ok := get("OPENAI_API_BASE"); ok {
		c.LLM.BaseURL = v
		c.Embedding.BaseURL = v
	}
	if v, ok := get("OPENAI_MODEL"); ok {
		c.LLM.Model = v
	}
	if v, ok := get("OPENAI_EMBED_MODEL"); ok {
		c.Embedding.Model = v
	}
	if v, ok := get("OPENAI_EXTRACT_MODEL"); ok {
		c.Extraction.Model = v
	}
	if v, ok := get("JWT_SECRET"); ok {
		c.Auth.JwtSecret = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		c.Databases.Postgres.DSN = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logger.Level = v
	}
	if v, ok := get("RECALL_MAX_DIST"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RECALL_MAX_DIST 不是合法的数字 %q: %w", v, err)
		}
		c.Memory.RecallMaxDistance = f
	}
	if v, ok := get("AUTO_MEMORY_MIN_SCORE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTO_MEMORY_MIN_SCORE 不是合法的数字 %q: %w", v, err)
		}
		c.Memory.AutoMemoryMinScore = f
	}
	return nil
}
