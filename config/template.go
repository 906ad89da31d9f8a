//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package config

// DefaultYAML is a commented starter document. It loads to the same
// configuration Default returns.
const DefaultYAML = `# trpc-eval configuration.
#
# Credentials never live in this file. Name the environment variables that
# hold them instead.

model:
  provider: openai
  name: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  # base_url: https://my-gateway.example.com/v1
  # temperature: 0.0
  # max_tokens: 1024

runner:
  concurrency: 4
  max_retries: 3
  timeout_seconds: 60
  judge_timeout_seconds: 120
  # rate_limit_per_second: 10
  pass_policy: all

scorers:
  - type: exact_match
  # - type: f1
  #   min_score: 0.5
  # - type: semantic_similarity
  #   threshold: 0.8
  #   embedding_model: text-embedding-3-small
  # - type: llm_judge
  #   threshold: 0.7
  #   rubric:
  #     - name: correctness
  #       description: The answer matches the expected facts.
  #       weight: 0.7
  #     - name: completeness
  #       description: The answer covers every part of the question.
  #       weight: 0.3
  # - type: recall_at_k
  #   preset: retrieval-quality

baseline:
  accuracy_drop_points: {major: 5, critical: 10}
  pass_rate_drop_points: {major: 5, critical: 10}
  latency_increase_ratio: {major: 0.25, critical: 0.50}
  cost_increase_ratio: {major: 0.25, critical: 0.50}

# budgets:
#   - period: daily
#     limit_usd: 50
#     alert_threshold_percent: 80

alerts:
  min_severity: minor
  # webhook_url: https://hooks.example.com/eval
  # dashboard_url: https://eval.example.com
  # email:
  #   host: smtp.example.com
  #   port: 587
  #   from: eval@example.com
  #   to: [team@example.com]
  #   username: eval@example.com
  #   password_env: EVAL_SMTP_PASSWORD

storage:
  # dir: ./eval-data
  # mysql_dsn: user:pass@tcp(localhost:3306)/eval?parseTime=true

log:
  level: info

telemetry:
  enabled: false
  endpoint: localhost:4317
  protocol: grpc
`
