package audit

import "strings"

// ActionResource holds the verb and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseFullMethod returns verb and resource for a gRPC full method (e.g. /lexgate.matters.v1.MatterService/GetMatter).
// Verb is get, list, create, update, delete, generate, review, run, or the lowercase method name for others.
// Resource is derived from the service name (e.g. MatterService -> matter).
func ParseFullMethod(fullMethod string) ActionResource {
	// fullMethod format: /lexgate.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	// InvoiceService -> invoice
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	for _, verb := range []string{"Get", "List", "Create", "Update", "Delete", "Generate", "Review", "Run", "Add", "Remove"} {
		if strings.HasPrefix(method, verb) && method != verb {
			return strings.ToLower(verb)
		}
	}
	return strings.ToLower(method)
}
