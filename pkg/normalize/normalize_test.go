package normalize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
	"github.com/Sumatoshi-tech/codedrift/pkg/normalize"
)

const pythonSource = `import os
from collections import deque

def fetch(url, timeout=5):
    if timeout > 0:
        return url
    return None

class Worker:
    def run(self):
        for item in self.queue:
            self.handle(item)
`

func TestParsePythonModule(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	module, err := reg.Parse(context.Background(), []byte(pythonSource), "app/worker.py", normalize.LangPython)
	require.NoError(t, err)
	require.NotNil(t, module)

	assert.Equal(t, node.KindModule, module.Kind)
	assert.Equal(t, "worker", module.Name)
	assert.Contains(t, module.Imports, "os")
	assert.Contains(t, module.Imports, "collections")

	index := module.Index()

	fetch, ok := index[node.Key{Kind: node.KindFunction, Path: "fetch"}]
	require.True(t, ok)
	require.Len(t, fetch.Signature, 2)
	assert.Equal(t, "url", fetch.Signature[0].Name)
	assert.True(t, fetch.Signature[1].HasDefault)

	require.NotNil(t, fetch.Shape)
	assert.Equal(t, 1, fetch.Shape.Branches)
	assert.Equal(t, 2, fetch.Shape.Returns)
	assert.Equal(t, 1, fetch.Shape.ComparisonOps[">"])

	worker, ok := index[node.Key{Kind: node.KindClass, Path: "Worker"}]
	require.True(t, ok)
	require.NotNil(t, worker.Shape)
	assert.Contains(t, worker.Shape.ClassMethods, "run")

	run, ok := index[node.Key{Kind: node.KindMethod, Path: "Worker.run"}]
	require.True(t, ok)
	require.NotNil(t, run.Shape)
	assert.Equal(t, 1, run.Shape.Loops)
	assert.Contains(t, run.Shape.Calls, "handle")
}

func TestParsePythonGeneratorAndAsync(t *testing.T) {
	t.Parallel()

	src := `async def poll(client):
    await client.ping()

def stream(items):
    for item in items:
        yield item
`

	reg := normalize.NewRegistry()

	module, err := reg.Parse(context.Background(), []byte(src), "poll.py", normalize.LangPython)
	require.NoError(t, err)

	index := module.Index()

	poll := index[node.Key{Kind: node.KindFunction, Path: "poll"}]
	require.NotNil(t, poll)
	assert.True(t, poll.Async)
	assert.Equal(t, 1, poll.Shape.Awaits)

	stream := index[node.Key{Kind: node.KindFunction, Path: "stream"}]
	require.NotNil(t, stream)
	assert.False(t, stream.Async)
	assert.True(t, stream.Shape.IsGenerator())
}

func TestParsePythonDecoratorsAndLambda(t *testing.T) {
	t.Parallel()

	src := `class Box:
    @staticmethod
    def make():
        return Box()

double = lambda x: x * 2
`

	reg := normalize.NewRegistry()

	module, err := reg.Parse(context.Background(), []byte(src), "box.py", normalize.LangPython)
	require.NoError(t, err)

	index := module.Index()

	make, ok := index[node.Key{Kind: node.KindMethod, Path: "Box.make"}]
	require.True(t, ok)
	assert.Contains(t, make.Decorators, "staticmethod")

	lambda, ok := index[node.Key{Kind: node.KindLambda, Path: "lambda#0"}]
	require.True(t, ok)
	require.Len(t, lambda.Signature, 1)
	assert.Equal(t, "x", lambda.Signature[0].Name)
}

const javascriptSource = `import { readFile } from "fs";

function add(a, b) {
  return a + b;
}

class Greeter extends Base {
  greet(name) {
    if (!name) {
      return "hi";
    }
    return "hi " + name;
  }
}

const sq = x => x * x;
`

func TestParseJavaScriptModule(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	module, err := reg.Parse(context.Background(), []byte(javascriptSource), "src/greeter.js", normalize.LangJavaScript)
	require.NoError(t, err)

	assert.Contains(t, module.Imports, "fs")

	index := module.Index()

	add, ok := index[node.Key{Kind: node.KindFunction, Path: "add"}]
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, add.ParamNames())
	assert.Equal(t, 1, add.Shape.Returns)
	assert.Equal(t, 1, add.Shape.BinaryOps["+"])

	greeter, ok := index[node.Key{Kind: node.KindClass, Path: "Greeter"}]
	require.True(t, ok)
	assert.Equal(t, []string{"Base"}, greeter.Bases)

	greet, ok := index[node.Key{Kind: node.KindMethod, Path: "Greeter.greet"}]
	require.True(t, ok)
	assert.Equal(t, 1, greet.Shape.Branches)
	assert.Equal(t, 2, greet.Shape.Returns)

	sq, ok := index[node.Key{Kind: node.KindLambda, Path: "lambda#0"}]
	require.True(t, ok)
	assert.Equal(t, 1, sq.Shape.BinaryOps["*"])
}

const phpSource = `<?php
use App\Support\Logger;

function normalize_total($value, $scale = 2) {
    if ($value < 0) {
        return 0;
    }
    return round($value, $scale);
}

class Invoice extends Model {
    public $total = 0;

    public function addLine($line) {
        $this->total += $line;
    }
}
`

func TestParsePHPModule(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	module, err := reg.Parse(context.Background(), []byte(phpSource), "app/Invoice.php", normalize.LangPHP)
	require.NoError(t, err)

	assert.Contains(t, module.Imports, `App\Support\Logger`)

	index := module.Index()

	fn, ok := index[node.Key{Kind: node.KindFunction, Path: "normalize_total"}]
	require.True(t, ok)
	require.Len(t, fn.Signature, 2)
	assert.True(t, fn.Signature[1].HasDefault)
	assert.Equal(t, 1, fn.Shape.Branches)
	assert.Equal(t, 2, fn.Shape.Returns)
	assert.Contains(t, fn.Shape.Calls, "round")

	invoice, ok := index[node.Key{Kind: node.KindClass, Path: "Invoice"}]
	require.True(t, ok)
	assert.Equal(t, []string{"Model"}, invoice.Bases)
	assert.Contains(t, invoice.Shape.ClassMethods, "addLine")

	addLine, ok := index[node.Key{Kind: node.KindMethod, Path: "Invoice.addLine"}]
	require.True(t, ok)
	assert.Equal(t, 1, addLine.Shape.AugAssignments)
	assert.GreaterOrEqual(t, addLine.Shape.AttributeAccesses, 1)
}

func TestParseUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	_, err := reg.Parse(context.Background(), []byte("puts 1"), "x.rb", normalize.Language("ruby"))
	require.ErrorIs(t, err, normalize.ErrUnsupportedLanguage)
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	_, err := reg.Parse(context.Background(), []byte("def broken(:\n"), "broken.py", normalize.LangPython)
	require.Error(t, err)

	var parseErr *normalize.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "broken.py", parseErr.Path)
	assert.GreaterOrEqual(t, parseErr.Line, 1)
}

func TestParseMissingTokenIsParseError(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	// An unclosed block at end of file is repaired by the parser with a
	// zero-width inserted token; the repaired tree must not pass as a clean
	// parse.
	_, err := reg.Parse(context.Background(), []byte("function f() { return 1;\n"), "f.js", normalize.LangJavaScript)
	require.Error(t, err)

	var parseErr *normalize.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "f.js", parseErr.Path)
}

func TestParseCancelledContext(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Parse(ctx, []byte("x = 1\n"), "x.py", normalize.LangPython)
	require.Error(t, err)
}

func TestRegistryLanguages(t *testing.T) {
	t.Parallel()

	reg := normalize.NewRegistry()

	assert.True(t, reg.Supported(normalize.LangPython))
	assert.True(t, reg.Supported(normalize.LangJavaScript))
	assert.True(t, reg.Supported(normalize.LangPHP))
	assert.Equal(t, []normalize.Language{
		normalize.LangJavaScript,
		normalize.LangPHP,
		normalize.LangPython,
	}, reg.Languages())
}
