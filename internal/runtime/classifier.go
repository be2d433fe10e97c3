package runtime

import "context"

// Classifier is a loaded script bound to a Runtime.
type Classifier struct {
	rt     *Runtime
	path   string
	source string
}

// Classifier loads the script at path once for repeated evaluation.
func (r *Runtime) Classifier(path string) (*Classifier, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return &Classifier{rt: r, path: path, source: src}, nil
}

// Classify evaluates the script for one symbol.
func (c *Classifier) Classify(ctx context.Context, in Input) (string, error) {
	return c.rt.eval(ctx, c.source, c.path, in)
}
