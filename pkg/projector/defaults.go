package projector

// The default event catalogue: user, product, and order lifecycles. Each
// reducer bumps a version counter and reads only the payload fields it
// names; wrong-typed or absent numeric fields default to zero.

func (p *Projector) registerDefaults() {
	p.Register("USER_CREATED", func(_ map[string]any, payload map[string]any, _ string) map[string]any {
		return map[string]any{
			"userId":    payload["userId"],
			"username":  payload["username"],
			"isActive":  true,
			"version":   1,
			"createdAt": payload["timestamp"],
		}
	})

	p.Register("USER_RENAMED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["username"] = payload["newUsername"]
		next["version"] = intOf(state["version"]) + 1
		next["lastModified"] = payload["timestamp"]
		return next
	})

	p.Register("USER_DEACTIVATED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["isActive"] = false
		next["deactivationReason"] = payload["reason"]
		next["version"] = intOf(state["version"]) + 1
		next["deactivatedAt"] = payload["timestamp"]
		return next
	})

	p.Register("USER_REACTIVATED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["isActive"] = true
		delete(next, "deactivationReason")
		delete(next, "deactivatedAt")
		next["version"] = intOf(state["version"]) + 1
		next["reactivatedAt"] = payload["timestamp"]
		return next
	})

	p.Register("PRODUCT_ADDED", func(_ map[string]any, payload map[string]any, _ string) map[string]any {
		stock := 0
		if v, ok := payload["stock"]; ok {
			stock = intOf(v)
		}
		return map[string]any{
			"productId":   payload["productId"],
			"productName": payload["productName"],
			"price":       payload["price"],
			"stock":       stock,
			"version":     1,
			"createdAt":   payload["timestamp"],
		}
	})

	p.Register("PRODUCT_UPDATED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		if v, ok := payload["productName"]; ok {
			next["productName"] = v
		}
		if v, ok := payload["price"]; ok {
			next["price"] = v
		}
		next["version"] = intOf(state["version"]) + 1
		next["lastModified"] = payload["timestamp"]
		return next
	})

	p.Register("STOCK_INCREMENTED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["stock"] = intOf(state["stock"]) + intOf(payload["amount"])
		next["version"] = intOf(state["version"]) + 1
		next["lastStockUpdate"] = payload["timestamp"]
		return next
	})

	p.Register("STOCK_DECREMENTED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		stock := intOf(state["stock"]) - intOf(payload["amount"])
		if stock < 0 {
			// Stock never goes negative.
			stock = 0
		}
		next["stock"] = stock
		next["version"] = intOf(state["version"]) + 1
		next["lastStockUpdate"] = payload["timestamp"]
		return next
	})

	p.Register("ORDER_CREATED", func(_ map[string]any, payload map[string]any, _ string) map[string]any {
		return map[string]any{
			"orderId":     payload["orderId"],
			"userId":      payload["userId"],
			"status":      "CREATED",
			"items":       payload["items"],
			"totalAmount": payload["totalAmount"],
			"version":     1,
			"createdAt":   payload["timestamp"],
		}
	})

	p.Register("ORDER_CONFIRMED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["status"] = "CONFIRMED"
		next["version"] = intOf(state["version"]) + 1
		next["confirmedAt"] = payload["timestamp"]
		return next
	})

	p.Register("ORDER_SHIPPED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["status"] = "SHIPPED"
		next["trackingNumber"] = payload["trackingNumber"]
		next["version"] = intOf(state["version"]) + 1
		next["shippedAt"] = payload["timestamp"]
		return next
	})

	p.Register("ORDER_CANCELLED", func(state map[string]any, payload map[string]any, _ string) map[string]any {
		next := cloneState(state)
		next["status"] = "CANCELLED"
		next["cancellationReason"] = payload["reason"]
		next["version"] = intOf(state["version"]) + 1
		next["cancelledAt"] = payload["timestamp"]
		return next
	})
}

func cloneState(state map[string]any) map[string]any {
	next := make(map[string]any, len(state)+2)
	for k, v := range state {
		next[k] = v
	}
	return next
}

// intOf coerces the numeric representations a JSON payload can carry.
// Anything else counts as zero.
func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
