package interp

import (
	"strings"

	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func (it *Interpreter) evalIdentifier(n *ast.Identifier, env *scope.Environment) value.Value {
	if v, ok := env.Get(n.Name); ok {
		return v
	}
	switch n.Name {
	case "undefined":
		return value.TheUndefined
	case "NaN":
		return value.Number{Value: nan()}
	case "Infinity":
		return value.Number{Value: posInf()}
	}
	return it.throwf(jserrors.KindReference, n, "%s is not defined", n.Name)
}

func (it *Interpreter) evalLiteral(n *ast.Literal) value.Value {
	switch v := n.Value.(type) {
	case nil:
		return value.TheNull
	case bool:
		return value.Bool{Value: v}
	case float64:
		return value.Number{Value: v}
	case string:
		return value.String{Value: v}
	default:
		return value.TheUndefined
	}
}

func (it *Interpreter) evalThis(env *scope.Environment) value.Value {
	if v, ok := env.Get(thisKey); ok {
		return v
	}
	return value.TheUndefined
}

func (it *Interpreter) evalTemplateLiteral(n *ast.TemplateLiteral, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalTemplateFrom(n, 0, "", env, actx)
}

func (it *Interpreter) evalTemplateFrom(n *ast.TemplateLiteral, i int, acc string, env *scope.Environment, actx *asyncContext) value.Value {
	if i >= len(n.Expressions) {
		var sb strings.Builder
		sb.WriteString(acc)
		sb.WriteString(n.Quasis[i])
		return value.String{Value: sb.String()}
	}
	acc += n.Quasis[i]
	return it.evalChainable(n.Expressions[i], env, actx, func(v value.Value) value.Value {
		return it.evalTemplateFrom(n, i+1, acc+v.String(), env, actx)
	})
}

func (it *Interpreter) evalArrayExpression(n *ast.ArrayExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalArrayFrom(n.Elements, 0, nil, env, actx)
}

func (it *Interpreter) evalArrayFrom(elems []ast.Expression, i int, acc []value.Value, env *scope.Environment, actx *asyncContext) value.Value {
	for ; i < len(elems); i++ {
		el := elems[i]
		if el == nil {
			acc = append(acc, value.TheUndefined) // elision hole
			continue
		}
		if spread, ok := el.(*ast.SpreadElement); ok {
			next := i + 1
			return it.evalChainable(spread.Argument, env, actx, func(v value.Value) value.Value {
				merged := append(append([]value.Value{}, acc...), spreadElements(v)...)
				return it.evalArrayFrom(elems, next, merged, env, actx)
			})
		}
		next := i + 1
		return it.evalChainable(el, env, actx, func(v value.Value) value.Value {
			return it.evalArrayFrom(elems, next, append(append([]value.Value{}, acc...), v), env, actx)
		})
	}
	return &value.Array{Elements: acc}
}

func spreadElements(v value.Value) []value.Value {
	if arr, ok := v.(*value.Array); ok {
		return arr.Elements
	}
	if s, ok := v.(value.String); ok {
		out := make([]value.Value, 0, len(s.Value))
		for _, r := range s.Value {
			out = append(out, value.String{Value: string(r)})
		}
		return out
	}
	return nil
}

func (it *Interpreter) evalObjectExpression(n *ast.ObjectExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalObjectFrom(n.Properties, 0, value.NewObject(), env, actx)
}

func (it *Interpreter) evalObjectFrom(props []*ast.Property, i int, obj *value.Object, env *scope.Environment, actx *asyncContext) value.Value {
	for ; i < len(props); i++ {
		p := props[i]
		if p.Key == nil {
			if spread, ok := p.Value.(*ast.SpreadElement); ok {
				next := i + 1
				return it.evalChainable(spread.Argument, env, actx, func(v value.Value) value.Value {
					if src, ok := v.(*value.Object); ok {
						for _, k := range src.Keys() {
							sv, _ := src.Get(k)
							obj.Set(k, sv)
						}
					}
					return it.evalObjectFrom(props, next, obj, env, actx)
				})
			}
			continue
		}
		key := it.propertyKeyName(p.Key, p.Computed, env, actx)
		next := i + 1
		return it.evalChainable(p.Value, env, actx, func(v value.Value) value.Value {
			obj.Set(key, v)
			return it.evalObjectFrom(props, next, obj, env, actx)
		})
	}
	return obj
}

func (it *Interpreter) propertyKeyName(key ast.Expression, computed bool, env *scope.Environment, actx *asyncContext) string {
	if !computed {
		switch k := key.(type) {
		case *ast.Identifier:
			return k.Name
		case *ast.Literal:
			return it.evalLiteral(k).String()
		}
	}
	v := it.Eval(key, env, actx)
	return v.String()
}

func (it *Interpreter) evalFunctionExpression(n *ast.FunctionExpression, env *scope.Environment) value.Value {
	return &value.UserFunction{
		Name:    n.Name,
		Params:  paramNames(n.Params),
		Body:    n.Body,
		Scope:   env,
		IsAsync: n.IsAsync,
		Line:    n.Line(),
	}
}

func (it *Interpreter) evalArrowFunctionExpression(n *ast.ArrowFunctionExpression, env *scope.Environment) value.Value {
	return &value.UserFunction{
		Params:   paramNames(n.Params),
		Body:     n.Body,
		ExprBody: n.ExprBody,
		Scope:    env,
		IsAsync:  n.IsAsync,
		IsArrow:  true,
		Line:     n.Line(),
	}
}

func (it *Interpreter) evalUnaryExpression(n *ast.UnaryExpression, env *scope.Environment, actx *asyncContext) value.Value {
	if n.Operator == ast.UnaryTypeof {
		if id, ok := n.Argument.(*ast.Identifier); ok {
			if v, found := env.Get(id.Name); found {
				return value.String{Value: typeofValue(v)}
			}
			return value.String{Value: "undefined"}
		}
	}
	if n.Operator == ast.UnaryDelete {
		// spec.md §9 open question: delete always reports success, without
		// attempting the member removal's side effect validation a real
		// engine would perform.
		if mem, ok := n.Argument.(*ast.MemberExpression); ok {
			return it.evalChainable(mem.Object, env, actx, func(obj value.Value) value.Value {
				if o, ok := obj.(*value.Object); ok {
					key := it.memberKeyName(mem, env, actx)
					o.Delete(key)
				}
				return value.Bool{Value: true}
			})
		}
		return value.Bool{Value: true}
	}
	return it.evalChainable(n.Argument, env, actx, func(v value.Value) value.Value {
		return applyUnary(n.Operator, v)
	})
}

func (it *Interpreter) memberKeyName(mem *ast.MemberExpression, env *scope.Environment, actx *asyncContext) string {
	if !mem.Computed {
		if id, ok := mem.Property.(*ast.Identifier); ok {
			return id.Name
		}
	}
	return it.Eval(mem.Property, env, actx).String()
}

func (it *Interpreter) evalUpdateExpression(n *ast.UpdateExpression, env *scope.Environment, actx *asyncContext) value.Value {
	step := func(oldNum float64) float64 {
		if n.Operator == ast.UpdateIncrement {
			return oldNum + 1
		}
		return oldNum - 1
	}
	result := func(oldNum, newNum float64) value.Value {
		if n.Prefix {
			return value.Number{Value: newNum}
		}
		return value.Number{Value: oldNum}
	}

	switch target := n.Argument.(type) {
	case *ast.Identifier:
		current, found := env.Get(target.Name)
		if !found {
			return it.throwf(jserrors.KindReference, n, "%s is not defined", target.Name)
		}
		oldNum := toNumber(current)
		newNum := step(oldNum)
		if err := env.Set(target.Name, value.Number{Value: newNum}); err != nil {
			return it.throwf(jserrors.KindType, n, "%s", err.Error())
		}
		return result(oldNum, newNum)
	case *ast.MemberExpression:
		return it.evalChainable(target.Object, env, actx, func(obj value.Value) value.Value {
			key := it.memberKeyName(target, env, actx)
			switch o := obj.(type) {
			case *value.Object:
				current, _ := o.Get(key)
				oldNum := toNumber(current)
				newNum := step(oldNum)
				o.Set(key, value.Number{Value: newNum})
				return result(oldNum, newNum)
			case *value.Array:
				idx, ok := arrayIndex(key)
				if !ok {
					return it.throwf(jserrors.KindType, n, "invalid array index %q", key)
				}
				for idx >= len(o.Elements) {
					o.Elements = append(o.Elements, value.TheUndefined)
				}
				oldNum := toNumber(o.Elements[idx])
				newNum := step(oldNum)
				o.Elements[idx] = value.Number{Value: newNum}
				return result(oldNum, newNum)
			default:
				return it.throwf(jserrors.KindType, n, "cannot update property %q of %s", key, obj.String())
			}
		})
	default:
		return it.throwf(jserrors.KindType, n, "invalid increment/decrement target")
	}
}

func (it *Interpreter) evalBinaryExpression(n *ast.BinaryExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Left, env, actx, func(left value.Value) value.Value {
		return it.evalChainable(n.Right, env, actx, func(right value.Value) value.Value {
			return applyBinary(n.Operator, left, right)
		})
	})
}

func (it *Interpreter) evalLogicalExpression(n *ast.LogicalExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Left, env, actx, func(left value.Value) value.Value {
		switch n.Operator {
		case "&&":
			if !value.IsTruthy(left) {
				return left
			}
			return it.Eval(n.Right, env, actx)
		case "||":
			if value.IsTruthy(left) {
				return left
			}
			return it.Eval(n.Right, env, actx)
		case "??":
			if !isNullish(left) {
				return left
			}
			return it.Eval(n.Right, env, actx)
		default:
			return it.throwf(jserrors.KindType, n, "unknown logical operator %q", n.Operator)
		}
	})
}

func (it *Interpreter) evalAssignmentExpression(n *ast.AssignmentExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Value, env, actx, func(rhs value.Value) value.Value {
		return it.performAssignment(n, rhs, env, actx)
	})
}

func (it *Interpreter) performAssignment(n *ast.AssignmentExpression, rhs value.Value, env *scope.Environment, actx *asyncContext) value.Value {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		current, _ := env.Get(target.Name)
		final := combineAssign(n.Operator, current, rhs)
		if err := env.Set(target.Name, final); err != nil {
			return it.throwf(jserrors.KindType, n, "%s", err.Error())
		}
		return final
	case *ast.MemberExpression:
		return it.evalChainable(target.Object, env, actx, func(obj value.Value) value.Value {
			key := it.memberKeyName(target, env, actx)
			o, ok := obj.(*value.Object)
			if !ok {
				if arr, isArr := obj.(*value.Array); isArr {
					return it.assignArrayIndex(arr, key, n.Operator, rhs, n)
				}
				return it.throwf(jserrors.KindType, n, "cannot set property %q of %s", key, obj.String())
			}
			current, _ := o.Get(key)
			final := combineAssign(n.Operator, current, rhs)
			o.Set(key, final)
			return final
		})
	default:
		return it.throwf(jserrors.KindType, n, "invalid assignment target")
	}
}

func (it *Interpreter) assignArrayIndex(arr *value.Array, key string, op string, rhs value.Value, n ast.Node) value.Value {
	idx, ok := arrayIndex(key)
	if !ok {
		return it.throwf(jserrors.KindType, n, "invalid array index %q", key)
	}
	for idx >= len(arr.Elements) {
		arr.Elements = append(arr.Elements, value.TheUndefined)
	}
	final := combineAssign(op, arr.Elements[idx], rhs)
	arr.Elements[idx] = final
	return final
}

func (it *Interpreter) evalConditionalExpression(n *ast.ConditionalExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Test, env, actx, func(test value.Value) value.Value {
		if value.IsTruthy(test) {
			return it.Eval(n.Consequent, env, actx)
		}
		return it.Eval(n.Alternate, env, actx)
	})
}

func (it *Interpreter) evalSequenceExpression(n *ast.SequenceExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalSequenceFrom(n.Expressions, 0, value.TheUndefined, env, actx)
}

func (it *Interpreter) evalSequenceFrom(exprs []ast.Expression, i int, _ value.Value, env *scope.Environment, actx *asyncContext) value.Value {
	if i >= len(exprs) {
		return value.TheUndefined
	}
	return it.evalChainable(exprs[i], env, actx, func(v value.Value) value.Value {
		if i == len(exprs)-1 {
			return v
		}
		return it.evalSequenceFrom(exprs, i+1, v, env, actx)
	})
}
