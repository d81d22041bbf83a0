package hms

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// readFields drives a struct read, handing each field to fn and skipping
// anything fn does not consume. Unknown fields from newer servers are
// therefore harmless.
func readFields(ctx context.Context, p thrift.TProtocol, fn func(id int16, typ thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, typ, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}
		handled := false
		if fn != nil {
			if handled, err = fn(id, typ); err != nil {
				return err
			}
		}
		if !handled {
			if err := p.Skip(ctx, typ); err != nil {
				return err
			}
		}
		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return p.ReadStructEnd(ctx)
}

func writeFieldString(ctx context.Context, p thrift.TProtocol, id int16, name, v string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return err
	}
	if err := p.WriteString(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldBool(ctx context.Context, p thrift.TProtocol, id int16, name string, v bool) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.BOOL, id); err != nil {
		return err
	}
	if err := p.WriteBool(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldI16(ctx context.Context, p thrift.TProtocol, id int16, name string, v int16) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I16, id); err != nil {
		return err
	}
	if err := p.WriteI16(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldI32(ctx context.Context, p thrift.TProtocol, id int16, name string, v int32) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return err
	}
	if err := p.WriteI32(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldI64(ctx context.Context, p thrift.TProtocol, id int16, name string, v int64) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I64, id); err != nil {
		return err
	}
	if err := p.WriteI64(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldStringList(ctx context.Context, p thrift.TProtocol, id int16, name string, vs []string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.LIST, id); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRING, len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		if err := p.WriteString(ctx, v); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldStringMap(ctx context.Context, p thrift.TProtocol, id int16, name string, m map[string]string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.MAP, id); err != nil {
		return err
	}
	if err := p.WriteMapBegin(ctx, thrift.STRING, thrift.STRING, len(m)); err != nil {
		return err
	}
	for k, v := range m {
		if err := p.WriteString(ctx, k); err != nil {
			return err
		}
		if err := p.WriteString(ctx, v); err != nil {
			return err
		}
	}
	if err := p.WriteMapEnd(ctx); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldStruct(ctx context.Context, p thrift.TProtocol, id int16, name string, v thrift.TStruct) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRUCT, id); err != nil {
		return err
	}
	if err := v.Write(ctx, p); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeFieldStructList[T thrift.TStruct](ctx context.Context, p thrift.TProtocol, id int16, name string, items []T) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.LIST, id); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := item.Write(ctx, p); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func readStringList(ctx context.Context, p thrift.TProtocol) ([]string, error) {
	_, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, size)
	for i := 0; i < size; i++ {
		v, err := p.ReadString(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, p.ReadListEnd(ctx)
}

func readStringMap(ctx context.Context, p thrift.TProtocol) (map[string]string, error) {
	_, _, size, err := p.ReadMapBegin(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, size)
	for i := 0; i < size; i++ {
		k, err := p.ReadString(ctx)
		if err != nil {
			return nil, err
		}
		v, err := p.ReadString(ctx)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, p.ReadMapEnd(ctx)
}

func readStructList[T thrift.TStruct](ctx context.Context, p thrift.TProtocol, alloc func() T) ([]T, error) {
	_, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, size)
	for i := 0; i < size; i++ {
		item := alloc()
		if err := item.Read(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, p.ReadListEnd(ctx)
}
