package log

import "log/slog"

func ActionKey(key string) slog.Attr {
	return slog.String("action_key", key)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

func FlowID[T ~string](id T) slog.Attr {
	return slog.String("flow_id", string(id))
}

func Env(env string) slog.Attr {
	return slog.String("env", env)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
