package order

// Plan is the row-level shape of a cart, one LinePlan per cart line in
// submission order.
type Plan struct {
	Lines []LinePlan
}

// LinePlan holds the item rows of one cart line and the stock decrements
// that follow them.
type LinePlan struct {
	Items      []Item
	Decrements []StockDecrement
}

// Items returns every item row of the plan in insertion order.
func (p Plan) Items() []Item {
	var items []Item
	for _, l := range p.Lines {
		items = append(items, l.Items...)
	}
	return items
}

// Decrements returns every scheduled decrement in execution order.
func (p Plan) Decrements() []StockDecrement {
	var decs []StockDecrement
	for _, l := range p.Lines {
		decs = append(decs, l.Decrements...)
	}
	return decs
}

// Expand turns cart lines into grouped item rows.
//
// Every repetition of a line gets its own group id. Group ids are dense,
// start at 1 and increase across the whole cart. A group holds the main
// item followed by the line's add-ons in submission order. Each line
// schedules one decrement for its main product and one per add-on, all by
// the line quantity.
func Expand(lines []CartLine) Plan {
	plan := Plan{Lines: make([]LinePlan, 0, len(lines))}
	groupID := 0
	for _, line := range lines {
		qty := max(1, line.Quantity)
		addOns := line.Modifications.AddOns
		lp := LinePlan{
			Items:      make([]Item, 0, qty*(1+len(addOns))),
			Decrements: make([]StockDecrement, 0, 1+len(addOns)),
		}

		for range qty {
			groupID++
			lp.Items = append(lp.Items, Item{
				ProductID:  line.ProductID,
				Price:      line.Price,
				SugarLevel: line.Modifications.SugarLevel,
				IceLevel:   line.Modifications.IceLevel,
				GroupID:    groupID,
			})
			for _, a := range addOns {
				lp.Items = append(lp.Items, Item{
					ProductID: a.ProductID,
					Price:     a.Price,
					GroupID:   groupID,
				})
			}
		}

		lp.Decrements = append(lp.Decrements, StockDecrement{ProductID: line.ProductID, Quantity: qty})
		for _, a := range addOns {
			lp.Decrements = append(lp.Decrements, StockDecrement{ProductID: a.ProductID, Quantity: qty})
		}
		plan.Lines = append(plan.Lines, lp)
	}
	return plan
}

// itemCount is the number of rows Expand produces for lines, saturating
// just past MaxOrderItems.
func itemCount(lines []CartLine) int {
	n := 0
	for _, line := range lines {
		n += max(1, min(line.Quantity, MaxLineQuantity+1)) * (1 + len(line.Modifications.AddOns))
		if n > MaxOrderItems {
			return MaxOrderItems + 1
		}
	}
	return n
}
