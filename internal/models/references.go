package models

// Company - горнодобывающая компания, публикующая тендеры.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Supplier - поставщик, подающий предложения.
type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
