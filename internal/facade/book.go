package facade

import (
	"log/slog"

	"github.com/rickgao/l2replay/internal/book"
)

func newBook(p BookParams, logger *slog.Logger) (book.Book, error) {
	if !p.enabled() {
		return book.NewSparse(), nil
	}
	return book.NewDense(p.DenseMinPriceInt, p.DenseMaxPriceInt, p.DenseTickSizeInt, logger)
}
