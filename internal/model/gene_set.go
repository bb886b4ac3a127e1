package model

// GeneSet 对应 gene_set 表。
// SourceAccession 不为空时表示由 GO 注释整理出的基因组，例如 "GO:0006915"。
type GeneSet struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string `gorm:"type:varchar(255);index" json:"name"`
	Description     string `gorm:"type:text" json:"description"`
	SourceAccession string `gorm:"type:varchar(255);index" json:"sourceAccession,omitempty"`
	TaxonID         int64  `json:"taxonId"`
}

func (GeneSet) TableName() string {
	return "gene_set"
}

func (s *GeneSet) EntityID() int64        { return s.ID }
func (s *GeneSet) EntityType() EntityType { return EntityGeneSet }

// GeneSetMember 是基因组的成员。
type GeneSetMember struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	GeneSetID int64 `gorm:"not null;index" json:"geneSetId"`
	GeneID    int64 `gorm:"not null;index" json:"geneId"`
}

func (GeneSetMember) TableName() string {
	return "gene_set_member"
}

// BibliographicReference 对应 bibliographic_reference 表，即文献。
type BibliographicReference struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string `gorm:"type:varchar(1024)" json:"title"`
	PubAccession string `gorm:"type:varchar(64);index" json:"pubAccession"`
	Authors      string `gorm:"type:text" json:"authors"`
	Abstract     string `gorm:"type:text" json:"abstract"`
}

func (BibliographicReference) TableName() string {
	return "bibliographic_reference"
}

func (b *BibliographicReference) EntityID() int64        { return b.ID }
func (b *BibliographicReference) EntityType() EntityType { return EntityPublication }
