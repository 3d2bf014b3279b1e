package loupe

import (
	"context"
	"strings"
	"testing"
)

// benchHookSource is a realistic hook script with locals, control flow,
// member chains, and helper calls for exercising the full analysis pipeline.
const benchHookSource = `local task = context.task
local pipeline = context.pipeline

local function classify(status)
  if status == "succeeded" then
    return "ok"
  elseif status == "skipped" then
    return "skip"
  end
  return "bad"
end

local lines = {}
table.insert(lines, "pipeline " .. pipeline.name)
table.insert(lines, "task " .. task.name .. " is " .. classify(task.status))

for _, line in ipairs(lines) do
  helpers.log(line, "info")
end

local payload = helpers.json_encode({
  run = context.run_id,
  task = task.id,
  verdict = classify(task.status),
})
local resp = await(helpers.http_post("https://metrics.example.com/ingest", payload))
if resp.status >= 300 then
  helpers.log("ingest rejected: " .. tostring(resp.status), "warn")
end

return { output = payload }
`

func benchRequest() Request {
	return Request{Text: benchHookSource, Hook: "on_task_complete", Mode: "transform"}
}

func benchEngine(b *testing.B) *Engine {
	b.Helper()
	eng, err := New()
	if err != nil {
		b.Fatal(err)
	}
	return eng
}

// BenchmarkAnalyze measures one full parse-and-infer cycle, the shared cost
// under every query.
func BenchmarkAnalyze(b *testing.B) {
	eng := benchEngine(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Analyze(ctx, benchRequest()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiagnostics(b *testing.B) {
	eng := benchEngine(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Diagnostics(ctx, benchRequest()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompletionMember(b *testing.B) {
	eng := benchEngine(b)
	ctx := context.Background()
	req := benchRequest()
	offset := strings.Index(req.Text, "context.task") + len("context.t")
	if offset < len("context.t") {
		b.Fatal("needle not found")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Completion(ctx, req, offset, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHover(b *testing.B) {
	eng := benchEngine(b)
	ctx := context.Background()
	req := benchRequest()
	offset := strings.Index(req.Text, "http_post")
	if offset < 0 {
		b.Fatal("needle not found")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Hover(ctx, req, offset); err != nil {
			b.Fatal(err)
		}
	}
}
