package schemas

import "testing"

func TestTaskSubmitSchemaTrimsInstruction(t *testing.T) {
	req := TaskSubmitRequest{Task: "  Create a new patient record  "}
	if issues := TaskSubmitSchema.Validate(&req); len(issues) > 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if req.Task != "Create a new patient record" {
		t.Fatalf("expected trimmed instruction, got %q", req.Task)
	}
}

func TestTaskSubmitSchemaRejectsEmpty(t *testing.T) {
	req := TaskSubmitRequest{Task: "   "}
	if issues := TaskSubmitSchema.Validate(&req); len(issues) == 0 {
		t.Fatalf("expected empty instruction to be rejected")
	}
}
