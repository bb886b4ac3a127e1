package model

// Taxon 对应 taxon 表。
type Taxon struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CommonName     string `gorm:"type:varchar(255)" json:"commonName"`
	ScientificName string `gorm:"type:varchar(255);not null" json:"scientificName"`
	NcbiID         int    `json:"ncbiId"`
}

func (Taxon) TableName() string {
	return "taxon"
}

// Gene 对应 gene 表。
type Gene struct {
	ID             int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OfficialSymbol string        `gorm:"type:varchar(255);index" json:"officialSymbol"`
	OfficialName   string        `gorm:"type:varchar(1024)" json:"officialName"`
	NcbiGeneID     int           `gorm:"index" json:"ncbiGeneId"`
	EnsemblID      string        `gorm:"type:varchar(64);index" json:"ensemblId"`
	TaxonID        int64         `gorm:"not null" json:"taxonId"`
	Aliases        []GeneAlias   `gorm:"foreignKey:GeneID" json:"aliases,omitempty"`
	Products       []GeneProduct `gorm:"foreignKey:GeneID" json:"products,omitempty"`
}

func (Gene) TableName() string {
	return "gene"
}

func (g *Gene) EntityID() int64        { return g.ID }
func (g *Gene) EntityType() EntityType { return EntityGene }

// GeneAlias 对应 gene_alias 表。
type GeneAlias struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GeneID int64  `gorm:"not null;index" json:"geneId"`
	Alias  string `gorm:"type:varchar(255);index" json:"alias"`
}

func (GeneAlias) TableName() string {
	return "gene_alias"
}

// GeneXref 记录基因在外部数据库中的交叉引用。
type GeneXref struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GeneID    int64  `gorm:"not null;index" json:"geneId"`
	Accession string `gorm:"type:varchar(255);index" json:"accession"`
	Database  string `gorm:"type:varchar(64)" json:"database"`
}

func (GeneXref) TableName() string {
	return "gene_xref"
}

// GeneProduct 对应 gene_product 表（转录本或蛋白）。
type GeneProduct struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GeneID     int64  `gorm:"not null;index" json:"geneId"`
	Name       string `gorm:"type:varchar(255);index" json:"name"`
	ExternalID string `gorm:"type:varchar(255);index" json:"externalId"`
}

func (GeneProduct) TableName() string {
	return "gene_product"
}

// Gene2GOAssociation 记录基因的 GO 注释。
type Gene2GOAssociation struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GeneID    int64  `gorm:"not null;index" json:"geneId"`
	GOTermURI string `gorm:"column:go_term_uri;type:varchar(255);index" json:"goTermUri"`
}

func (Gene2GOAssociation) TableName() string {
	return "gene2go_association"
}
