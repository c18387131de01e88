package undo

import "eventcontrol/backend/internal/domain"

// Revert applies the inverse of action.
func Revert(l *domain.Ledger, action domain.UndoAction) {
	switch action.Kind {
	case domain.UndoAddProduct:
		l.RemoveProduct(action.Product.ID)
	case domain.UndoDeleteProduct:
		if l.ProductIndex(action.Product.ID) < 0 {
			l.InsertProduct(action.Position, action.Product)
		}
	case domain.UndoUpdateProduct:
		l.ReplaceProduct(action.Product)
		if action.Result != nil {
			l.PutSale(action.Product.ID, copySale(action.SaleBefore))
		}
	}
}

// Apply re-applies the forward effect of action.
func Apply(l *domain.Ledger, action domain.UndoAction) {
	switch action.Kind {
	case domain.UndoAddProduct:
		if l.ProductIndex(action.Product.ID) < 0 {
			l.InsertProduct(action.Position, action.Product)
		}
	case domain.UndoDeleteProduct:
		l.RemoveProduct(action.Product.ID)
	case domain.UndoUpdateProduct:
		// Actions persisted without a result can only restore their snapshot.
		if action.Result == nil {
			l.ReplaceProduct(action.Product)
			return
		}
		l.ReplaceProduct(*action.Result)
		l.PutSale(action.Product.ID, copySale(action.SaleAfter))
	}
}

func copySale(sale *domain.Sale) *domain.Sale {
	if sale == nil {
		return nil
	}
	out := *sale
	return &out
}
