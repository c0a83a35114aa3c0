package router

// DecisionKind enumerates the four terminal outcomes of one routing pass.
type DecisionKind int

const (
	KindPassThrough DecisionKind = iota
	KindRewrite
	KindRedirect
	KindBlock
)

func (k DecisionKind) String() string {
	switch k {
	case KindPassThrough:
		return "pass_through"
	case KindRewrite:
		return "rewrite"
	case KindRedirect:
		return "redirect"
	case KindBlock:
		return "block"
	}
	return "unknown"
}

// Decision is the single routing outcome for one request. It is
// request-scoped and discarded after the response.
type Decision struct {
	Kind DecisionKind

	// Rewrite
	Path    string
	Headers map[string]string

	// Redirect
	Location string

	// Block
	Status      int
	Body        string
	ContentType string
}

func PassThrough() Decision {
	return Decision{Kind: KindPassThrough}
}

func RewriteTo(path string, headers map[string]string) Decision {
	return Decision{Kind: KindRewrite, Path: path, Headers: headers}
}

func RedirectTo(location string) Decision {
	return Decision{Kind: KindRedirect, Location: location}
}

func BlockWith(status int, body, contentType string) Decision {
	return Decision{Kind: KindBlock, Status: status, Body: body, ContentType: contentType}
}
