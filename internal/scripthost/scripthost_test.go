package scripthost

import "testing"

func TestNoOp_AlwaysReportsUnhandled(t *testing.T) {
	var h NoOp
	if _, ok := h.EvalCondition("anything", nil, nil); ok {
		t.Fatalf("NoOp.EvalCondition should never report ok=true")
	}
	if _, ok := h.EvalBranch("anything", nil, nil); ok {
		t.Fatalf("NoOp.EvalBranch should never report ok=true")
	}
	if h.EvalTransform("anything", nil, nil) {
		t.Fatalf("NoOp.EvalTransform should never report ok=true")
	}
}

func TestLuaHost_EvalCondition_MinLevel(t *testing.T) {
	h, err := NewLuaHost("testdata", nil)
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	ctx := newTestEvalContext(10, true)
	result, ok := h.EvalCondition("min_level", map[string]string{"level": "5"}, ctx)
	if !ok || !result {
		t.Fatalf("min_level(5) against level=10 = (%v, %v), want (true, true)", result, ok)
	}

	result, ok = h.EvalCondition("min_level", map[string]string{"level": "50"}, ctx)
	if !ok || result {
		t.Fatalf("min_level(50) against level=10 = (%v, %v), want (false, true)", result, ok)
	}
}

func TestLuaHost_EvalCondition_UnknownIDIsUnhandled(t *testing.T) {
	h, err := NewLuaHost("testdata", nil)
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	ctx := newTestEvalContext(1, false)
	if _, ok := h.EvalCondition("does_not_exist", nil, ctx); ok {
		t.Fatalf("expected ok=false for an id the script doesn't recognize")
	}
}

func TestLuaHost_EvalBranch_TeamLeaderRouting(t *testing.T) {
	h, err := NewLuaHost("testdata", nil)
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	leader := newTestEvalContext(1, true)
	branch, ok := h.EvalBranch("team_branch", nil, leader)
	if !ok || branch != 0 {
		t.Fatalf("team leader branch = (%d, %v), want (0, true)", branch, ok)
	}

	member := newTestEvalContext(1, false)
	branch, ok = h.EvalBranch("team_branch", nil, member)
	if !ok || branch != 1 {
		t.Fatalf("team member branch = (%d, %v), want (1, true)", branch, ok)
	}
}

func TestLuaHost_MissingScriptDirIsNotAnError(t *testing.T) {
	if _, err := NewLuaHost("testdata/does-not-exist", nil); err != nil {
		t.Fatalf("NewLuaHost with a missing directory should tolerate it: %v", err)
	}
}
