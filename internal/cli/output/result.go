package output

import "strings"

// Result is the rendered view of one executed instruction.
type Result struct {
	File        string `json:"file"`
	Instruction string `json:"instruction"`
	Success     bool   `json:"success"`
	Kind        string `json:"kind,omitempty"`
	Target      string `json:"target,omitempty"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	SavedPath   string `json:"saved_path,omitempty"`
	Summary     string `json:"summary"`
}

// Result prints an execution result in the effective mode.
func (r *Renderer) Result(res Result) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(res)
	case ModeMarkdown:
		status := "succeeded"
		if !res.Success {
			status = "failed"
		}
		r.Println(FormatHeader(2, "Operation "+status))
		r.Println("")
		r.Println("```")
		r.Println(res.Summary)
		r.Println("```")
		return nil
	default:
		lines := strings.Split(res.Summary, "\n")
		if res.Success {
			r.Success(lines[0])
		} else {
			r.Println(r.styles.Error.Render(r.styles.IconFail() + " " + lines[0]))
		}
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, "Hint:") {
				r.Println("  " + r.styles.Warning.Render(line))
				continue
			}
			r.Println("  " + line)
		}
		return nil
	}
}
