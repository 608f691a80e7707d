package qcml

// Document prolog. The internal DTD subset gives xsl:stylesheet an ID
// attribute so the stylesheet PI can point at the embedded stylesheet.
const docHeader = `<?xml version="1.0" encoding="ISO-8859-1"?>
<?xml-stylesheet type="text/xml" href="#stylesheet"?>
<!DOCTYPE catelog [
  <!ATTLIST xsl:stylesheet
  id  ID  #REQUIRED>
  ]>
<qcMLType>
`

const docStylesheet = `<xsl:stylesheet id="stylesheet" version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/">
  <html>
  <body>
		<h2>The Quality Parameters</h2>
			<table border="1">
				<tr bgcolor="#9acd32">
					<th>Parameter</th>
					<th>Value</th>
				</tr>
				<xsl:for-each select="qcMLType/runQuality/qualityParameter">
				<tr>
					<td><xsl:value-of select="@name" /></td>
					<td><xsl:value-of select="@value" /></td>
				</tr>
				</xsl:for-each>
			</table><br/>
		<h2>The Quality Plots</h2>
      <xsl:for-each select="qcMLType/runQuality/attachment">
        <img>
      <xsl:attribute name="src">
          data:image/png;base64,<xsl:value-of select="binary" />
         </xsl:attribute>
        </img> <br/>
      </xsl:for-each>
  </body>
  </html>
</xsl:template>
</xsl:stylesheet>
`

const docCvList = `<CvList>
	<Cv id="PSI-MS" fullName="Proteomics Standards Initiative Mass Spectrometry Vocabularies" uri="http://psidev.cvs.sourceforge.net/viewvc/*checkout*/psidev/psi/psi-ms/mzML/controlledVocabulary/psi-ms.obo" version="3.41.0"/>
	<Cv id="PSI-MOD" fullName="Proteomics Standards Initiative Protein Modifications Vocabularies" uri="http://psidev.cvs.sourceforge.net/psidev/psi/mod/data/PSI-MOD.obo" version="1.2"/>
	<Cv id="UO" fullName="Unit Ontology" uri="http://obo.cvs.sourceforge.net/*checkout*/obo/obo/ontology/phenotype/unit.obo"/>
</CvList>
`

const docFooter = "</qcMLType>\n"
